// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the `<timestamp>` format used in migration names:
// YYYYMMDDhhmmss, UTC.
const TimestampLayout = "20060102150405"

// Name returns the deterministic migration name for a transition between
// fromVersion (empty for an initial creation) and toVersion of modelID, per
// spec §4.7.
func Name(now time.Time, modelID, fromVersion, toVersion string) string {
	ts := now.UTC().Format(TimestampLayout)
	lowerModel := strings.ToLower(modelID)
	toUS := versionUnderscored(toVersion)

	if fromVersion == "" {
		return fmt.Sprintf("%s_create_%s_%s", ts, lowerModel, toUS)
	}

	fromUS := versionUnderscored(fromVersion)
	return fmt.Sprintf("%s_migrate_%s_%s_to_%s", ts, lowerModel, fromUS, toUS)
}

func versionUnderscored(v string) string {
	return strings.ReplaceAll(v, ".", "_")
}
