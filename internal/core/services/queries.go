// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package services contains the work done for a single photo.
// This file, `queries.go`, holds the BigQuery SQL read against the published
// photo audit table. The only `fmt.Sprintf` placeholder is the fully
// qualified table name; values are bound as named query parameters.
package services

const (
	// QryRecordsByRun lists what one batch published, in roster order.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the audit table.
	//
	// Parameters: @run_id, @limit.
	QryRecordsByRun = "SELECT * FROM `%s` WHERE run_id = @run_id ORDER BY rank ASC LIMIT @limit"

	// QryLatestRecords returns the most recent record for every object
	// location, newest first. Re-runs overwrite objects in place, so this is
	// the current state of the bucket as far as the audit trail knows.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the audit table.
	//
	// Parameters: @limit.
	QryLatestRecords = "SELECT * EXCEPT(rn) FROM (SELECT *, ROW_NUMBER() OVER (PARTITION BY location ORDER BY publish_time DESC) AS rn FROM `%s`) WHERE rn = 1 ORDER BY publish_time DESC LIMIT @limit"
)
