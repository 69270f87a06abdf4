// Copyright 2025 The DQCore Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dqcore

import (
	"fmt"
	"regexp"
	"strconv"
)

// The identity marker is the only channel through which a check's identity
// survives the round trip through the scan engine: the compiler embeds it in
// every rule's name field and the reconciler recovers it from the engine's
// output. The format is a wire contract; changing it breaks the round trip.
const checkIDMarkerFormat = "%s [check_id:%d]"

var checkIDMarkerPattern = regexp.MustCompile(`\[check_id:(\d+)\]`)

// MarkCheckName appends the identity marker for id to a display name.
func MarkCheckName(name string, id int64) string {
	return fmt.Sprintf(checkIDMarkerFormat, name, id)
}

// ExtractCheckID recovers a check id from a marked name. The second return
// value is false when the name carries no marker.
func ExtractCheckID(name string) (int64, bool) {
	matches := checkIDMarkerPattern.FindStringSubmatch(name)
	if matches == nil {
		return 0, false
	}

	id, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
