// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package enforcement embeds the authoritative infant feeding safety
// rules into the binary.
//
// Embedding (rather than reading a file at runtime) guarantees the rule
// table ships with the code that depends on it and cannot be weakened by
// a missing or malformed deployment artifact. The whole safety guarantee
// rests on this table being well-formed, so the loader treats any parse
// or validation failure as fatal at startup.
package enforcement

import _ "embed"

// SafetyRulePatterns is the raw YAML rule table. Parsed and validated by
// the rules package; never consumed directly.
//
//go:embed safety_rules.yaml
var SafetyRulePatterns []byte
