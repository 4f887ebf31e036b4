// Copyright 2025, 2026 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package apitest provides Gomega matchers for service responses.
package apitest

import (
	"github.com/onsi/gomega/gcustom"
	"github.com/onsi/gomega/types"
	"github.com/thediveo/crservice/api"
)

// HaveFailed succeeds if the actual value is an [api.Response] reporting
// failure.
func HaveFailed() types.GomegaMatcher {
	return gcustom.MakeMatcher(func(resp api.Response) (bool, error) {
		return !resp.Succeeded(), nil
	}).WithTemplate("Expected\n{{.FormattedActual}}\n{{.To}} report failure")
}

// BeDumpResponse succeeds if the actual value is an [*api.DumpResponse] with
// the specified success and restored flags.
func BeDumpResponse(success, restored bool) types.GomegaMatcher {
	return gcustom.MakeMatcher(func(resp api.Response) (bool, error) {
		dr, ok := resp.(*api.DumpResponse)
		if !ok {
			return false, nil
		}
		return dr.Success == success && dr.Restored == restored, nil
	}).WithTemplate("Expected\n{{.FormattedActual}}\n{{.To}} be a dump response with success={{.Data.Success}}, restored={{.Data.Restored}}",
		struct{ Success, Restored bool }{success, restored})
}
