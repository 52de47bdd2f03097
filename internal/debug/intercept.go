// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package debug

import (
	"context"

	grafterrors "github.com/tombee/graft/pkg/errors"
)

// Hooks observe a single compute invocation. For each invocation Begin is
// called once, followed by exactly one of End or Exception.
type Hooks interface {
	// InterceptComputeBegin runs before compute.
	InterceptComputeBegin(ctx context.Context)

	// InterceptComputeEnd runs after compute returns without error.
	InterceptComputeEnd(ctx context.Context)

	// InterceptComputeException runs after compute returns an error or
	// panics, before the failure propagates.
	InterceptComputeException(ctx context.Context, failure grafterrors.ComputationFailure)
}

// Intercept runs compute between the hooks.
//
// The outcome of compute is passed through untouched: a returned error is
// returned as the same value, and a panic is re-raised with the same value
// once the exception hook has run. A runtime.Goexit in compute is reported
// as an exception and then continues.
func Intercept(ctx context.Context, hooks Hooks, compute func(context.Context) error) error {
	hooks.InterceptComputeBegin(ctx)

	returned := false
	defer func() {
		if returned {
			return
		}
		r := recover()
		if r == nil {
			// runtime.Goexit: report it and let the goroutine keep unwinding.
			hooks.InterceptComputeException(ctx, grafterrors.DescribeGoexit())
			return
		}
		hooks.InterceptComputeException(ctx, grafterrors.DescribePanic(r))
		panic(r)
	}()

	err := compute(ctx)
	returned = true

	if err != nil {
		hooks.InterceptComputeException(ctx, grafterrors.DescribeError(err))
		return err
	}
	hooks.InterceptComputeEnd(ctx)
	return nil
}
