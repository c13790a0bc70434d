package frame_test

import (
	"fmt"

	"github.com/cwbudde/algo-echelle/frame"
)

func ExampleFrame_CollapseRows() {
	f, _ := frame.FromRows([][]float64{
		{1, 1, 1},
		{2, 5, 2},
		{1, 1, 1},
	})
	profile, _ := f.CollapseRows(0, 3, 0, 3)
	fmt.Println(profile)

	// Output:
	// [3 9 3]
}
