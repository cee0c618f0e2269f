// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vkrend

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// NewError returns an error for given result, or nil for Success.
func NewError(ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	return fmt.Errorf("vkrend: vulkan error: %s (%d)", vk.Error(ret).Error(), ret)
}

// IfPanic panics on non-nil err. Used for GPU setup calls whose
// failure leaves nothing to recover to.
func IfPanic(err error) {
	if err != nil {
		panic(err)
	}
}
