// Copyright 2025 The pgr Authors
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

// Package catalog reads routine signatures from the PostgreSQL catalog.
//
// [Fetch] calls the catalog function installed by [Provision] and returns one
// [Row] per routine: name, set-returning flag, return type, and the parallel
// argument name, mode and type arrays. [Introspect] turns rows into
// [Signature] values, decoding mode codes with [DecodeMode]. An unknown mode
// code or a length mismatch between the argument arrays is fatal.
package catalog
