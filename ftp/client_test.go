package ftp

import (
	"bytes"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClientRoundTrip drives the server with a regular FTP client, over EPSV and over PASV
func TestClientRoundTrip(t *testing.T) {
	tests := []struct {
		name        string
		disableEPSV bool
	}{
		{name: "epsv"},
		{name: "pasv", disableEPSV: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, h, _ := startTestService(t, Config{PublicIPv4: "127.0.0.1"})

			c, err := ftp.Dial(fmt.Sprintf("127.0.0.1:%d", h.Port()),
				ftp.DialWithTimeout(5*time.Second),
				ftp.DialWithDisabledEPSV(tt.disableEPSV),
			)
			require.NoError(t, err)
			defer c.Quit()

			require.NoError(t, c.Login("u", "p"))

			payload := bytes.Repeat([]byte{0, 1, 2, 3, 254, 255}, 5000)
			require.NoError(t, c.Stor("/blob.bin", bytes.NewReader(payload)))
			require.NoError(t, c.Stor("empty.txt", bytes.NewReader(nil)))

			r, err := c.Retr("/blob.bin")
			require.NoError(t, err)
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			require.NoError(t, r.Close())
			assert.Equal(t, payload, got)

			entries, err := c.List("")
			require.NoError(t, err)
			sizes := map[string]uint64{}
			for _, entry := range entries {
				assert.Equal(t, ftp.EntryTypeFile, entry.Type)
				sizes[entry.Name] = entry.Size
			}
			assert.Equal(t, map[string]uint64{"blob.bin": uint64(len(payload)), "empty.txt": 0}, sizes)

			dir, err := c.CurrentDir()
			require.NoError(t, err)
			assert.Equal(t, "/", dir)

			assert.Error(t, c.ChangeDir("/blob.bin"))
			_, err = c.Retr("/../etc/passwd")
			assert.Error(t, err)
		})
	}
}

func TestClientBadLogin(t *testing.T) {
	_, h, _ := startTestService(t, Config{})

	c, err := ftp.Dial(fmt.Sprintf("127.0.0.1:%d", h.Port()), ftp.DialWithTimeout(5*time.Second))
	require.NoError(t, err)
	defer c.Quit()

	assert.Error(t, c.Login("u", "nope"))
}
