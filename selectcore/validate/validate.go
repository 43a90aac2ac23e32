// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package validate checks reservation and job requests for shape
// errors before they reach a picker or the row packer, so that a
// malformed request surfaces as a ValidationError rather than an
// internal-invariant panic deeper in selectcore.
package validate

import (
	"fmt"

	"github.com/hpcsched/cons-res-select/bitset"
	"github.com/hpcsched/cons-res-select/pkg/errors"
	"github.com/hpcsched/cons-res-select/selectcore"
)

// Validator checks requests against one resource type's shape rules.
// The zero value is not usable; construct with New.
type Validator struct {
	resourceType string
}

// New creates a Validator that reports the given resource type in
// its error messages ("reservation", "job").
func New(resourceType string) *Validator {
	return &Validator{resourceType: resourceType}
}

// ValidateNonNegative rejects a negative integer field.
func (v *Validator) ValidateNonNegative(value int, fieldName string) error {
	if value < 0 {
		return errors.NewValidationError(
			errors.ErrorCodeValidationFailed,
			fmt.Sprintf("%s must be non-negative", fieldName),
			fieldName, value, nil,
		)
	}
	return nil
}

// ReservationRequest mirrors spec.md's reservation request shape:
// node_cnt, an optional ordered core_cnt sequence, and a flags word.
// CoreCnt is nil for a full-node reservation.
type ReservationRequest struct {
	NodeCnt uint32
	CoreCnt selectcore.CoreCntRequest
	Flags   ReservationFlags
}

// ReservationFlags is the bitset of recognized reservation modifiers.
type ReservationFlags uint32

const (
	// FlagFirstCores selects the literal-first-N-cores-per-node mode
	// (selectcore.FirstCoresPick) instead of the density-driven
	// sequential or topology pickers.
	FlagFirstCores ReservationFlags = 1 << iota
	// FlagIgnoreJobs allows the reservation to overlap running jobs.
	FlagIgnoreJobs
	// FlagAnyNodes allows non-idle nodes to be selected.
	FlagAnyNodes
)

const knownReservationFlags = FlagFirstCores | FlagIgnoreJobs | FlagAnyNodes

// ValidateReservationRequest checks a reservation request's shape:
// unknown flags, a zero node_cnt paired with an absent core_cnt (the
// request would select nothing), and core_cnt well-formedness.
func (v *Validator) ValidateReservationRequest(req *ReservationRequest) error {
	if req == nil {
		return errors.NewValidationError(
			errors.ErrorCodeValidationFailed,
			fmt.Sprintf("%s request is required", v.resourceType),
			"request", req, nil,
		)
	}

	if req.Flags&^knownReservationFlags != 0 {
		return errors.NewValidationError(
			errors.ErrorCodeValidationFailed,
			"reservation request carries unrecognized flag bits",
			"request.Flags", req.Flags, nil,
		)
	}

	if req.NodeCnt == 0 && req.CoreCnt == nil {
		return errors.NewValidationError(
			errors.ErrorCodeValidationFailed,
			"reservation request must name at least a node count or a core count",
			"request.NodeCnt", req.NodeCnt, nil,
		)
	}

	if req.Flags&FlagFirstCores != 0 && len(req.CoreCnt) == 0 {
		return errors.NewValidationError(
			errors.ErrorCodeValidationFailed,
			"first-cores reservation requires a nonempty core count list",
			"request.CoreCnt", req.CoreCnt, nil,
		)
	}

	return v.validateCoreCntShape(req.NodeCnt, req.CoreCnt)
}

// validateCoreCntShape enforces the aggregate-vs-per-node ambiguity
// spec.md resolves by length: a single-element CoreCnt is the
// aggregate total, anything longer is a per-node list in which no
// nonzero entry may follow the first zero (its terminator). When
// node_cnt > 0, a list longer than node_cnt must carry a terminator;
// otherwise a list with no zero entry is accepted as it is.
func (v *Validator) validateCoreCntShape(nodeCnt uint32, coreCnt selectcore.CoreCntRequest) error {
	if coreCnt == nil {
		return nil
	}
	if len(coreCnt) == 0 {
		return errors.NewValidationError(
			errors.ErrorCodeValidationFailed,
			"core count list, if present, must carry at least one entry",
			"request.CoreCnt", coreCnt, nil,
		)
	}
	if coreCnt.IsAggregate() {
		return nil
	}

	sawZero := false
	for i, c := range coreCnt {
		if c == 0 {
			sawZero = true
			continue
		}
		if sawZero {
			return errors.NewValidationError(
				errors.ErrorCodeValidationFailed,
				"core count list has a nonzero entry after its zero terminator",
				"request.CoreCnt", coreCnt, nil,
			)
		}
		_ = i
	}
	if nodeCnt > 0 && uint32(len(coreCnt)) > nodeCnt && !sawZero {
		return errors.NewValidationError(
			errors.ErrorCodeValidationFailed,
			"per-node core count list is longer than node_cnt and carries no zero terminator",
			"request.CoreCnt", coreCnt, nil,
		)
	}
	return nil
}

// ValidateJobResources checks a job's resource claim is well-formed
// before it is handed to the row packer: both bitmaps present, ncpus
// nonzero, and at least one core set in the core bitmap (the row
// packer panics on a job that holds no cores). ncpus is not compared
// against the core bitmap's popcount.
func (v *Validator) ValidateJobResources(job *selectcore.JobResources) error {
	if job == nil {
		return errors.NewValidationError(
			errors.ErrorCodeValidationFailed,
			fmt.Sprintf("%s resources are required", v.resourceType),
			"job", job, nil,
		)
	}
	if job.NodeBitmap == nil {
		return errors.NewValidationError(
			errors.ErrorCodeInvalidRequest,
			"job has no node bitmap",
			"job.NodeBitmap", nil, nil,
		)
	}
	if job.CoreBitmap == nil {
		return errors.NewValidationError(
			errors.ErrorCodeInvalidRequest,
			"job has no core bitmap",
			"job.CoreBitmap", nil, nil,
		)
	}
	if job.NCPUs == 0 {
		return errors.NewValidationError(
			errors.ErrorCodeValidationFailed,
			"job.NCPUs must be positive",
			"job.NCPUs", job.NCPUs, nil,
		)
	}
	if job.CoreBitmap.IsZero() {
		return errors.NewValidationError(
			errors.ErrorCodeInvalidRequest,
			"job holds no cores",
			"job.CoreBitmap", job.CoreBitmap, nil,
		)
	}
	return nil
}

// ValidateSpecializedCores checks a specialized-core exclusion mask
// is sized to match the cluster's total core count, the one shape
// requirement SpecCoreFilter itself assumes rather than checks.
func (v *Validator) ValidateSpecializedCores(specializedCores *bitset.BitSet, totalCores int) error {
	if specializedCores == nil {
		return nil
	}
	if specializedCores.Len() != totalCores {
		return errors.NewValidationError(
			errors.ErrorCodeValidationFailed,
			"specialized core mask size does not match cluster core count",
			"specializedCores.Len", specializedCores.Len(), nil,
		)
	}
	return nil
}
