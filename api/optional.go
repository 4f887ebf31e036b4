// Copyright 2026 Harald Albrecht.
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

package api

import "fmt"

// Optional is a value of type T that might have been left unspecified. An
// unspecified Optional never gets conflated with a specified zero value: an
// Optional[bool] distinguishes between “not sent” and “sent as false”. The
// zero Optional is unspecified.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns a specified Optional with the passed value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// None returns an unspecified Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and true if specified, otherwise the zero value of T
// and false.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

func (o Optional[T]) isSet() bool {
	return o.set
}

// Or returns the specified value, or otherwise def.
func (o Optional[T]) Or(def T) T {
	if !o.isSet() {
		return def
	}
	return o.value
}

// String returns the value in textual form, or “<unset>”.
func (o Optional[T]) String() string {
	if !o.isSet() {
		return "<unset>"
	}
	return fmt.Sprintf("%v", o.value)
}

// fromPtr maps the protobuf representation of optional fields, where nil
// indicates absence, onto an Optional.
func fromPtr[T any](p *T) Optional[T] {
	if p == nil {
		return Optional[T]{}
	}
	return Some(*p)
}

// ptr returns the protobuf representation of the Optional: nil when
// unspecified, otherwise a pointer to a copy of the value.
func (o Optional[T]) ptr() *T {
	if !o.isSet() {
		return nil
	}
	v := o.value
	return &v
}
