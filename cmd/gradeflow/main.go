package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess       = 0 // Every student reached done
	ExitStudentFailed = 1 // One or more students failed or were not processed
	ExitError         = 2 // Configuration or runtime error
)

// BatchFailureError indicates that the batch ran to the end, or was
// canceled, but not every student reached done.
type BatchFailureError struct {
	Message string
}

func (e *BatchFailureError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var batchErr *BatchFailureError
	if errors.As(err, &batchErr) {
		return ExitStudentFailed
	}
	return ExitError
}
