package googleDriveApi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/drive/v3"
)

func TestExpiredFileIDs(t *testing.T) {
	cutoff := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	files := []*drive.File{
		{Id: "old", CreatedTime: "2025-05-01T10:00:00Z"},
		{Id: "fresh", CreatedTime: "2025-06-15T10:00:00Z"},
		{Id: "boundary", CreatedTime: "2025-06-01T00:00:00Z"},
		{Id: "garbled", CreatedTime: "yesterday"},
	}

	ids := expiredFileIDs(files, cutoff)

	assert.Equal(t, []string{"old"}, ids, "only files strictly before the cutoff are expired; unparseable times are kept")
}

func TestExpiredFileIDsEmpty(t *testing.T) {
	assert.Empty(t, expiredFileIDs(nil, time.Now()))
}
