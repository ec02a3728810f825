// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys_test

import (
	"testing"

	"github.com/aibor/guestrun/internal/sys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArch_UnmarshalText(t *testing.T) {
	tests := []struct {
		input       string
		expected    sys.Arch
		expectedErr error
	}{
		{input: "amd64", expected: sys.AMD64},
		{input: "arm64", expected: sys.ARM64},
		{input: "riscv64", expected: sys.RISCV64},
		{input: "mips", expectedErr: sys.ErrArchNotSupported},
		{input: "", expectedErr: sys.ErrArchNotSupported},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var arch sys.Arch

			err := arch.UnmarshalText([]byte(tt.input))
			require.ErrorIs(t, err, tt.expectedErr)

			assert.Equal(t, tt.expected, arch)
		})
	}
}

func TestArch_IsNative(t *testing.T) {
	assert.True(t, sys.Native.IsNative())
	assert.False(t, sys.Arch("sparc").IsNative())
	assert.False(t, sys.Arch("sparc").KVMAvailable())
}
