package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "medcircle/internal/errors"
)

func TestWordFilter(t *testing.T) {
	f := NewWordFilter()

	tests := []struct {
		name   string
		text   string
		reject bool
	}{
		{"clinical text", "Assessment of the left hip showed mild arthritis.", false},
		{"link to a study", "See https://pubmed.ncbi.nlm.nih.gov/123 for details", false},
		{"profanity", "this is BULLSHIT advice", true},
		{"character flood", "helpppppppppppppp", true},
		{"mixed case flood", "NOOOOOOoooooo way", true},
		{"indented list", "Dosage table:\n          - 5mg morning", false},
		{"markdown rule", "Results ==========", false},
		{"dotted leader", "Ibuprofen ............ 400mg", false},
		{"long number", "Platelets 1000000000000 per litre", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.Check(tt.text)
			if tt.reject {
				assert.ErrorIs(t, err, apperrors.ErrContentRejected)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
