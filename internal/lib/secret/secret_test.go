package secret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		attempt string
		wantErr bool
	}{
		{name: "matching secret", secret: "bridge-secret", attempt: "bridge-secret"},
		{name: "special chars", secret: "p@ss!#$%^&*()", attempt: "p@ss!#$%^&*()"},
		{name: "wrong secret", secret: "bridge-secret", attempt: "bridge-secreT", wantErr: true},
		{name: "empty attempt", secret: "bridge-secret", attempt: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := Hash(tt.secret)
			require.NoError(t, err)
			assert.NotEqual(t, tt.secret, hash)

			err = Compare(hash, tt.attempt)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCompare_InvalidHash(t *testing.T) {
	assert.Error(t, Compare("not-a-bcrypt-hash", "x"))
}
