package escrow

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnpackInstruction(t *testing.T) {
	amountBytes := func(v uint64) []byte {
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, v)
		return b
	}

	tests := []struct {
		name    string
		input   []byte
		want    Instruction
		wantErr error
	}{
		{
			name:  "init escrow",
			input: append([]byte{0}, amountBytes(1000)...),
			want:  InitEscrow{Amount: 1000},
		},
		{
			name:  "exchange",
			input: append([]byte{1}, amountBytes(42)...),
			want:  Exchange{Amount: 42},
		},
		{
			name:  "max amount",
			input: append([]byte{1}, amountBytes(^uint64(0))...),
			want:  Exchange{Amount: ^uint64(0)},
		},
		{
			name:  "trailing bytes ignored",
			input: append(append([]byte{0}, amountBytes(7)...), 0xff, 0xee),
			want:  InitEscrow{Amount: 7},
		},
		{name: "empty", input: nil, wantErr: ErrInvalidInstruction},
		{name: "unknown tag", input: append([]byte{2}, amountBytes(1)...), wantErr: ErrInvalidInstruction},
		{name: "short payload", input: []byte{0, 1, 2, 3, 4, 5, 6, 7}, wantErr: ErrInvalidInstruction},
		{name: "tag only", input: []byte{1}, wantErr: ErrInvalidInstruction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnpackInstruction(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInstructionPack(t *testing.T) {
	data := InitEscrow{Amount: 0x0102030405060708}.Pack()
	assert.Equal(t, []byte{0, 8, 7, 6, 5, 4, 3, 2, 1}, data)

	data = Exchange{Amount: 1}.Pack()
	assert.Equal(t, []byte{1, 1, 0, 0, 0, 0, 0, 0, 0}, data)

	assert.Equal(t, TagInitEscrow, InitEscrow{}.Tag())
	assert.Equal(t, TagExchange, Exchange{}.Tag())
	assert.Equal(t, "InitEscrow", TagInitEscrow.String())
	assert.Equal(t, "Exchange", TagExchange.String())
}
