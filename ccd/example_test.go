package ccd_test

import (
	"fmt"
	"strings"

	"github.com/cwbudde/algo-echelle/ccd"
	"github.com/cwbudde/algo-echelle/frame"
)

func ExampleRemoveBadRegions() {
	f, _ := frame.FromRows([][]float64{{2, 4, -1, -1, -1, 12}})
	regions, err := ccd.ParseBadPixels(strings.NewReader("# x1 x2 y1 y2\n3 5 1 1\n"))
	if err != nil {
		panic(err)
	}
	out, err := ccd.RemoveBadRegions(f, regions)
	if err != nil {
		panic(err)
	}
	fmt.Println(out.Row(0))

	// Output:
	// [2 4 6 8 10 12]
}

func ExampleParseSection() {
	sec, err := ccd.ParseSection("[1:2048, 3:60]")
	if err != nil {
		panic(err)
	}
	fmt.Println(sec, sec.X2-sec.X1+1, sec.Y2-sec.Y1+1)

	// Output:
	// [1:2048,3:60] 2048 58
}
