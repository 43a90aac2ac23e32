// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package selectcore

// PStateVersion is the saved-state format version a future
// partition-state persistence sibling would stamp into its snapshots.
// The core itself never reads or writes it; it exists only so that
// component, if and when it is built, agrees with this package on
// what "version 7" means.
const PStateVersion = 7
