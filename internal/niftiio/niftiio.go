// Package niftiio quarantines the third-party NIfTI reader. The library
// panics on malformed input, which is inappropriate for a pipeline stage and
// must be captured and turned into recoverable errors.
package niftiio

import (
	"fmt"

	"github.com/henghuang/nifti"
)

// LoadImage parses a .nii or .nii.gz file, reading voxel data when rdata is
// true, and converts any parser panic into an error.
func LoadImage(filename string, rdata bool) (parsed nifti.Nifti1Image, err error) {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			err = fmt.Errorf("%v", panicErr)
		}
	}()

	parsed.LoadImage(filename, rdata)

	return
}

// LoadHeader parses only the header of a .nii or .nii.gz file, converting
// any parser panic into an error.
func LoadHeader(filename string) (parsed nifti.Nifti1Header, err error) {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			err = fmt.Errorf("%v", panicErr)
		}
	}()

	parsed.LoadHeader(filename)

	return
}
