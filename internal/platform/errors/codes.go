// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Campaign errors
	CodeCampaignNotFound                Code = "CAMPAIGN_NOT_FOUND"
	CodeCampaignNameEmpty               Code = "CAMPAIGN_NAME_EMPTY"
	CodeCampaignCreatorEmpty            Code = "CAMPAIGN_CREATOR_EMPTY"
	CodeCampaignFundingTargetInvalid    Code = "CAMPAIGN_FUNDING_TARGET_INVALID"
	CodeCampaignTokenSupplyInvalid      Code = "CAMPAIGN_TOKEN_SUPPLY_INVALID"
	CodeCampaignAlreadyBonded           Code = "CAMPAIGN_ALREADY_BONDED"
	CodeCampaignNotBonded               Code = "CAMPAIGN_NOT_BONDED"
	CodeCampaignTargetNotReached        Code = "CAMPAIGN_TARGET_NOT_REACHED"
	CodeCampaignInvalidStatusTransition Code = "CAMPAIGN_INVALID_STATUS_TRANSITION"

	// Contribution errors
	CodeContributionZeroAmount       Code = "CONTRIBUTION_ZERO_AMOUNT"
	CodeContributionContributorEmpty Code = "CONTRIBUTION_CONTRIBUTOR_EMPTY"
	CodeContributionNotFound         Code = "CONTRIBUTION_NOT_FOUND"

	// Pool errors
	CodePoolNotFound              Code = "POOL_NOT_FOUND"
	CodePoolAlreadyExists         Code = "POOL_ALREADY_EXISTS"
	CodePoolZeroAmount            Code = "POOL_ZERO_AMOUNT"
	CodePoolZeroReserve           Code = "POOL_ZERO_RESERVE"
	CodePoolInvalidDirection      Code = "POOL_INVALID_DIRECTION"
	CodePoolInsufficientShares    Code = "POOL_INSUFFICIENT_SHARES"
	CodePoolInsufficientLiquidity Code = "POOL_INSUFFICIENT_LIQUIDITY"
	CodePoolSlippageExceeded      Code = "POOL_SLIPPAGE_EXCEEDED"
	CodePoolDeadlineExpired       Code = "POOL_DEADLINE_EXPIRED"

	// Fee and treasury errors
	CodeFeeBpsOverCeiling           Code = "FEE_BPS_OVER_CEILING"
	CodeTreasuryZeroAmount          Code = "TREASURY_ZERO_AMOUNT"
	CodeTreasuryInsufficientBalance Code = "TREASURY_INSUFFICIENT_BALANCE"

	// Authorization errors
	CodeUnauthorized           Code = "UNAUTHORIZED"
	CodeAuthzPrincipalEmpty    Code = "AUTHZ_PRINCIPAL_EMPTY"
	CodeAuthzUnknownCapability Code = "AUTHZ_UNKNOWN_CAPABILITY"

	// Arithmetic errors
	CodeOverflow       Code = "OVERFLOW"
	CodeDivisionByZero Code = "DIVISION_BY_ZERO"
	CodeAmountInvalid  Code = "AMOUNT_INVALID"

	// Storage errors
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"
	CodeEventInvalid  Code = "EVENT_INVALID"
)

// Class is the coarse failure taxonomy callers branch on. It tells a caller
// whether the same request can ever succeed if retried with different input.
type Class string

const (
	ClassNotFound         Class = "NOT_FOUND"
	ClassInvalidArgument  Class = "INVALID_ARGUMENT"
	ClassInvalidState     Class = "INVALID_STATE"
	ClassSlippageExceeded Class = "SLIPPAGE_EXCEEDED"
	ClassStale            Class = "STALE"
	ClassUnauthorized     Class = "UNAUTHORIZED"
	ClassOverflow         Class = "OVERFLOW"
	ClassInternal         Class = "INTERNAL"
)

// Class maps domain codes to the failure taxonomy.
func (c Code) Class() Class {
	switch c {
	// Validation failures: the request itself is malformed.
	case CodeCampaignNameEmpty,
		CodeCampaignCreatorEmpty,
		CodeCampaignFundingTargetInvalid,
		CodeCampaignTokenSupplyInvalid,
		CodeContributionZeroAmount,
		CodeContributionContributorEmpty,
		CodePoolZeroAmount,
		CodePoolInvalidDirection,
		CodePoolInsufficientShares,
		CodePoolInsufficientLiquidity,
		CodeFeeBpsOverCeiling,
		CodeTreasuryZeroAmount,
		CodeTreasuryInsufficientBalance,
		CodeAuthzPrincipalEmpty,
		CodeAuthzUnknownCapability,
		CodeDivisionByZero,
		CodeAmountInvalid,
		CodeEventInvalid:
		return ClassInvalidArgument

	// Lifecycle phase disallows the operation.
	case CodeCampaignAlreadyBonded,
		CodeCampaignNotBonded,
		CodeCampaignTargetNotReached,
		CodeCampaignInvalidStatusTransition,
		CodePoolAlreadyExists,
		CodePoolZeroReserve,
		CodeAlreadyExists:
		return ClassInvalidState

	case CodeNotFound,
		CodeCampaignNotFound,
		CodeContributionNotFound,
		CodePoolNotFound:
		return ClassNotFound

	case CodePoolSlippageExceeded:
		return ClassSlippageExceeded

	case CodePoolDeadlineExpired:
		return ClassStale

	case CodeUnauthorized:
		return ClassUnauthorized

	case CodeOverflow:
		return ClassOverflow

	default:
		return ClassInternal
	}
}

// GRPCCode maps domain codes to gRPC status codes through the taxonomy.
func (c Code) GRPCCode() codes.Code {
	switch c.Class() {
	case ClassInvalidArgument:
		return codes.InvalidArgument
	case ClassInvalidState, ClassSlippageExceeded:
		return codes.FailedPrecondition
	case ClassNotFound:
		return codes.NotFound
	case ClassStale:
		return codes.DeadlineExceeded
	case ClassUnauthorized:
		return codes.PermissionDenied
	case ClassOverflow:
		return codes.OutOfRange
	default:
		return codes.Internal
	}
}
