package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstraintRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		rec  ConstraintRecord
	}{
		{"empty", ConstraintRecord{}},
		{"loader only", ConstraintRecord{LoaderVersion: ">=0.3.0, <0.4.0"}},
		{"game only", ConstraintRecord{GameVersion: "^1.0.0"}},
		{
			"full",
			ConstraintRecord{
				LoaderVersion: ">=0.3.19",
				GameVersion:   ">=1.0.0, <2.0.0",
				Dependencies: []DependencyConstraint{
					{ID: "libX", Version: "^1.2.0"},
					{ID: "libY"},
				},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decoded, err := DecodeConstraints(EncodeConstraints(tc.rec))
			require.NoError(t, err)
			assert.Equal(t, tc.rec, decoded)
		})
	}
}

func TestDecodeConstraints_Truncated(t *testing.T) {
	full := EncodeConstraints(ConstraintRecord{
		LoaderVersion: ">=1.0.0",
		GameVersion:   "^2.0.0",
		Dependencies:  []DependencyConstraint{{ID: "libX", Version: "^1.0.0"}},
	})

	// Every proper prefix must fail cleanly, never panic.
	for i := 0; i < len(full); i++ {
		_, err := DecodeConstraints(full[:i])
		assert.Error(t, err, "prefix of length %d", i)
	}
}

func TestDecodeConstraints_Corrupt(t *testing.T) {
	t.Run("unknown layout tag", func(t *testing.T) {
		_, err := DecodeConstraints([]byte{0xFF, 0, 0, 0})
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("trailing garbage", func(t *testing.T) {
		data := EncodeConstraints(ConstraintRecord{LoaderVersion: "^1.0.0"})
		data = append(data, 0xAB)
		_, err := DecodeConstraints(data)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("absurd dependency count", func(t *testing.T) {
		// tag, empty loader, empty game, count claiming far more than remains
		data := []byte{recordVersion, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF, 0x0F}
		_, err := DecodeConstraints(data)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := DecodeConstraints(nil)
		assert.ErrorIs(t, err, ErrTruncated)
	})
}
