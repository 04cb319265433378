// Package encoder converts resolved peptides into fixed-width feature
// matrices, one row per candidate fragmentation position and ion type.
package encoder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/peptidelab/ms2predict/internal/bio"
)

// Method identifies a fragmentation method / instrument combination.
type Method string

// Supported fragmentation methods.
const (
	HCD      Method = "HCD"
	CID      Method = "CID"
	TTOF5600 Method = "TTOF5600"
	TMT      Method = "TMT"
	ETD      Method = "ETD"
	HCDCH2   Method = "HCDch2"
)

// ErrUnsupportedMethod is returned when a method has no ion-type mapping.
var ErrUnsupportedMethod = errors.New("unsupported fragmentation method")

// methodIons maps each method to its ordered ion-type set. The order is
// canonical: it fixes feature-matrix row order and spectrum sort order.
var methodIons = map[Method][]bio.IonType{
	HCD:      {bio.IonB, bio.IonY},
	CID:      {bio.IonB, bio.IonY},
	TTOF5600: {bio.IonB, bio.IonY},
	TMT:      {bio.IonB, bio.IonY},
	ETD:      {bio.IonB, bio.IonC, bio.IonY, bio.IonZ},
	HCDCH2:   {bio.IonB, bio.IonB2, bio.IonY, bio.IonY2},
}

// ParseMethod resolves a case-insensitive method name.
func ParseMethod(s string) (Method, error) {
	for m := range methodIons {
		if strings.EqualFold(string(m), s) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, s)
}

// IonTypes returns the ordered ion-type set for a method.
func IonTypes(method Method) ([]bio.IonType, error) {
	ions, ok := methodIons[method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}
	return ions, nil
}

// Methods returns the supported method names, for CLI listings.
func Methods() []string {
	out := make([]string, 0, len(methodIons))
	for m := range methodIons {
		out = append(out, string(m))
	}
	return out
}
