// Copyright 2026 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package limits implements distributed rate limiting for pipeline workers.
//
// The central type is TokenBucket, a named, time-refilled counter whose
// state lives in a shared StateStore so that every worker process drawing
// from the same store observes (approximately) the same budget. Buckets
// refill lazily: each read advances the token count by elapsed time times
// the refill rate, capped at capacity. There is no release operation;
// capacity consumed by a crashed worker comes back through refill alone.
//
// ResourceLimits bundles the buckets the pipeline actually uses
// (subprocess concurrency, LLM tokens per minute, LLM requests per minute)
// behind scoped guard methods.
package limits
