// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package affinity

import "runtime"

// Pin locks the calling goroutine to its OS thread. CPU binding is not
// available on this platform; the returned release function unlocks the
// thread.
func Pin(cpu int) (release func(), err error) {
	runtime.LockOSThread()
	return runtime.UnlockOSThread, nil
}
