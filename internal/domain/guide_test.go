package domain

import (
	"errors"
	"testing"
)

func TestGuideValidate(t *testing.T) {
	tests := []struct {
		name    string
		guide   Guide
		wantErr error
	}{
		{
			name:  "valid without vector",
			guide: Guide{Title: "t", Content: "c"},
		},
		{
			name:  "valid with matching vector",
			guide: Guide{Title: "t", Content: "c", Vector: make([]float32, 4)},
		},
		{
			name:    "empty title",
			guide:   Guide{Title: "  ", Content: "c"},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "empty content",
			guide:   Guide{Title: "t", Content: ""},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "wrong vector length",
			guide:   Guide{Title: "t", Content: "c", Vector: make([]float32, 3)},
			wantErr: ErrVectorDimMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.guide.Validate(4)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
