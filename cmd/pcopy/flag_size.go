// flag_size.go -- value implementation of a size input
//
// A size is an integer with a suffix of k, M, G, T, P, E
// denoting kilo, Mega, Giga, Tera, Peta, Exa (multiples of 1024)

package main

import (
	"github.com/opencoff/go-utils"
	flag "github.com/opencoff/pflag"
)

type SizeValue uint64

var _ flag.Value = NewSizeValue(0)

func NewSizeValue(def uint64) *SizeValue {
	v := SizeValue(def)
	return &v
}

func (v *SizeValue) String() string {
	return utils.HumanizeSize(uint64(*v))
}

func (v *SizeValue) Set(s string) error {
	z, err := utils.ParseSize(s)
	if err != nil {
		return err
	}
	*v = SizeValue(z)
	return nil
}

func (v *SizeValue) Type() string {
	return "size"
}

func (v *SizeValue) Value() uint64 {
	return uint64(*v)
}
