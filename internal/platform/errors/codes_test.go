package errors

import (
	"testing"

	"google.golang.org/grpc/codes"
)

func TestCodeClass(t *testing.T) {
	tests := []struct {
		code Code
		want Class
	}{
		{CodeCampaignNameEmpty, ClassInvalidArgument},
		{CodeContributionZeroAmount, ClassInvalidArgument},
		{CodeFeeBpsOverCeiling, ClassInvalidArgument},
		{CodeDivisionByZero, ClassInvalidArgument},
		{CodeCampaignAlreadyBonded, ClassInvalidState},
		{CodeCampaignInvalidStatusTransition, ClassInvalidState},
		{CodePoolAlreadyExists, ClassInvalidState},
		{CodeCampaignNotFound, ClassNotFound},
		{CodePoolNotFound, ClassNotFound},
		{CodeNotFound, ClassNotFound},
		{CodePoolSlippageExceeded, ClassSlippageExceeded},
		{CodePoolDeadlineExpired, ClassStale},
		{CodeUnauthorized, ClassUnauthorized},
		{CodeOverflow, ClassOverflow},
		{CodeUnknown, ClassInternal},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := tt.code.Class(); got != tt.want {
				t.Fatalf("Class() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCodeGRPCCode(t *testing.T) {
	tests := []struct {
		code Code
		want codes.Code
	}{
		{CodeCampaignNameEmpty, codes.InvalidArgument},
		{CodeCampaignAlreadyBonded, codes.FailedPrecondition},
		{CodePoolSlippageExceeded, codes.FailedPrecondition},
		{CodeCampaignNotFound, codes.NotFound},
		{CodePoolDeadlineExpired, codes.DeadlineExceeded},
		{CodeUnauthorized, codes.PermissionDenied},
		{CodeOverflow, codes.OutOfRange},
		{CodeUnknown, codes.Internal},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := tt.code.GRPCCode(); got != tt.want {
				t.Fatalf("GRPCCode() = %v, want %v", got, tt.want)
			}
		})
	}
}
