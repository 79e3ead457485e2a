package marker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeadingCommentAndMagicStart(t *testing.T) {
	text := "/*--host=h;--port=42;magic_start;*/ SELECT 1"
	body, rest, ok := LeadingComment(text)
	require.True(t, ok)
	assert.True(t, IsMagicStart(body))
	assert.Equal(t, "SELECT 1", rest)

	opt, err := ParseStart(body, Defaults{})
	require.NoError(t, err)
	assert.Equal(t, "h", opt.Host)
	assert.Equal(t, 42, opt.Port)
}

func TestMagicCommit(t *testing.T) {
	body, rest, ok := LeadingComment("/* magic_commit; */")
	require.True(t, ok)
	assert.True(t, IsMagicCommit(body))
	assert.Empty(t, rest)
}

func TestNoLeadingComment(t *testing.T) {
	_, _, ok := LeadingComment("SELECT 1")
	assert.False(t, ok)
}

func TestParseStartReplicasAndFlags(t *testing.T) {
	body := "--enable-execute=1;--enable-force;--sleep=50;--slave-hosts=10.0.0.1:3306,10.0.0.2:3307;magic_start"
	opt, err := ParseStart(body, Defaults{})
	require.NoError(t, err)
	assert.Equal(t, ModeExecute, opt.Mode)
	assert.True(t, opt.Force)
	assert.Equal(t, 50, opt.SleepMs)
	require.Len(t, opt.Replicas, 2)
	assert.Equal(t, HostPort{Host: "10.0.0.1", Port: 3306}, opt.Replicas[0])
}

func TestPasswordDefaultsAndAES(t *testing.T) {
	opt, err := ParseStart("magic_start", Defaults{User: "du", Password: "dp"})
	require.NoError(t, err)
	assert.Equal(t, "du", opt.User)
	assert.Equal(t, "dp", opt.Password)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := "s3cr3t-key-material"
	enc := EncryptPassword("hunter2", key)
	assert.Regexp(t, "^AES:", enc)

	plain, err := DecryptPassword(enc[len("AES:"):], key)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plain)
}

func TestParseStartAESPassword(t *testing.T) {
	key := "the-global-key-00"
	enc := EncryptPassword("realpw", key)
	opt, err := ParseStart("--password="+enc+";magic_start", Defaults{
		DecryptPassword: func(cipherBase64 string) (string, error) {
			return DecryptPassword(cipherBase64, key)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "realpw", opt.Password)
}
