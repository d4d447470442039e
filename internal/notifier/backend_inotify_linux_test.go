//go:build linux

package notifier

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestTranslateMask(t *testing.T) {
	tests := []struct {
		name string
		mask uint32
		want Op
	}{
		{"create", unix.IN_CREATE, OpCreate},
		{"moved to", unix.IN_MOVED_TO, OpCreate},
		{"directory create", unix.IN_CREATE | unix.IN_ISDIR, OpCreate},
		{"modify", unix.IN_MODIFY, OpWrite},
		{"close write", unix.IN_CLOSE_WRITE, OpWrite},
		{"delete", unix.IN_DELETE, OpRemove},
		{"moved from", unix.IN_MOVED_FROM, OpRemove},
		{"delete self", unix.IN_DELETE_SELF, OpRemove},
		{"attrib", unix.IN_ATTRIB, OpChmod},
		{"ignored only", unix.IN_IGNORED, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, translateMask(tt.mask))
		})
	}
}

// rawEvent encodes one inotify event the way the kernel lays it out.
func rawEvent(wd int32, mask uint32, name string) []byte {
	nameLen := 0
	if name != "" {
		nameLen = (len(name) + 1 + 15) &^ 15
	}
	buf := make([]byte, unix.SizeofInotifyEvent+nameLen)
	binary.NativeEndian.PutUint32(buf[0:], uint32(wd))
	binary.NativeEndian.PutUint32(buf[4:], mask)
	binary.NativeEndian.PutUint32(buf[12:], uint32(nameLen))
	copy(buf[unix.SizeofInotifyEvent:], name)
	return buf
}

func TestInotifyBackend_ParseEvents(t *testing.T) {
	b, err := newInotifyBackend(testLogger())
	require.NoError(t, err)
	defer b.Close() //nolint:errcheck // Test cleanup

	dir := t.TempDir()
	require.NoError(t, b.Add(dir))

	b.mu.RLock()
	wd := int32(b.watches[dir])
	b.mu.RUnlock()

	var buf []byte
	buf = append(buf, rawEvent(wd, unix.IN_CREATE, "a.txt")...)
	buf = append(buf, rawEvent(wd, unix.IN_DELETE_SELF, "")...)
	buf = append(buf, rawEvent(wd+100, unix.IN_CREATE, "unknown.txt")...)

	at := time.Now()
	b.parseEvents(buf, at)

	assert.Equal(t, RawOp{Path: filepath.Join(dir, "a.txt"), Op: OpCreate, At: at}, <-b.ops)
	assert.Equal(t, RawOp{Path: dir, Op: OpRemove, At: at}, <-b.ops)
	assert.Empty(t, b.ops, "events for unknown descriptors are dropped")
}

func TestInotifyBackend_Overflow(t *testing.T) {
	b, err := newInotifyBackend(testLogger())
	require.NoError(t, err)
	defer b.Close() //nolint:errcheck // Test cleanup

	b.parseEvents(rawEvent(-1, unix.IN_Q_OVERFLOW, ""), time.Now())

	select {
	case err := <-b.Errors():
		assert.ErrorIs(t, err, ErrOverflow)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for overflow error")
	}
}

func TestInotifyBackend_IgnoredForgetsWatch(t *testing.T) {
	b, err := newInotifyBackend(testLogger())
	require.NoError(t, err)
	defer b.Close() //nolint:errcheck // Test cleanup

	dir := filepath.Join(t.TempDir(), "gone")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, b.Add(dir))
	require.NoError(t, os.Remove(dir))

	require.Eventually(t, func() bool {
		b.mu.RLock()
		defer b.mu.RUnlock()
		_, ok := b.watches[dir]
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestInotifyBackend_AddMissing(t *testing.T) {
	b, err := newInotifyBackend(testLogger())
	require.NoError(t, err)
	defer b.Close() //nolint:errcheck // Test cleanup

	assert.Error(t, b.Add(filepath.Join(t.TempDir(), "missing")))
	assert.NoError(t, b.Remove("/never/added"))
}
