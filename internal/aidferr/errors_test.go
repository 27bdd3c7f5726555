package aidferr

import (
	"errors"
	"testing"
)

func TestNew_RetryableFromCode(t *testing.T) {
	cases := []struct {
		code Code
		want bool
	}{
		{CodeProviderCrash, true},
		{CodeProviderNotAvailable, false},
		{CodeProviderRateLimit, true},
		{CodeGitRevertFailed, false},
		{CodeGitCommitFailed, true},
		{CodeConfigInvalid, false},
	}
	for _, tc := range cases {
		e := New(CategoryProvider, tc.code, nil)
		if e.Retryable != tc.want {
			t.Errorf("code %s: Retryable = %v, want %v", tc.code, e.Retryable, tc.want)
		}
	}
}

func TestError_UnwrapAndAs(t *testing.T) {
	cause := errors.New("boom")
	e := New(CategoryProvider, CodeProviderCrash, cause)
	wrapped := errors.Join(e)

	got, ok := As(wrapped)
	if !ok {
		t.Fatal("expected As to find *Error")
	}
	if got.Code != CodeProviderCrash {
		t.Errorf("Code = %s, want %s", got.Code, CodeProviderCrash)
	}
	if !errors.Is(e, cause) {
		t.Errorf("expected errors.Is to reach cause via Unwrap")
	}
}

func TestError_WithContext(t *testing.T) {
	e := New(CategoryTimeout, CodeIterationTimeout, nil).WithContext("seconds", 300)
	if e.Context["seconds"] != 300 {
		t.Errorf("expected context seconds=300, got %v", e.Context["seconds"])
	}
}
