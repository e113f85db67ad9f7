package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStatus_Terminal(t *testing.T) {
	tests := []struct {
		status   FileStatus
		terminal bool
	}{
		{StatusUploaded, false},
		{StatusProcessing, false},
		{StatusIndexed, true},
		{StatusFailed, true},
	}

	for _, tc := range tests {
		t.Run(string(tc.status), func(t *testing.T) {
			assert.Equal(t, tc.terminal, tc.status.Terminal())
		})
	}
}

func TestFileTypeFromExtension(t *testing.T) {
	tests := []struct {
		ext      string
		expected FileType
		wantErr  bool
	}{
		{"pdf", FileTypePDF, false},
		{"txt", FileTypeTXT, false},
		{"md", FileTypeTXT, false},
		{"docx", FileTypeDOCX, false},
		{"doc", FileTypeDOCX, false},
		{"png", FileTypeImage, false},
		{"jpg", FileTypeImage, false},
		{"jpeg", FileTypeImage, false},
		{"tiff", FileTypeImage, false},
		{"exe", "", true},
		{"", "", true},
		{"html", "", true},
	}

	for _, tc := range tests {
		t.Run("ext_"+tc.ext, func(t *testing.T) {
			ft, err := FileTypeFromExtension(tc.ext)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, ft)
		})
	}
}
