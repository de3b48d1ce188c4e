package query

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/onlinecourse/catalog/internal/model"
)

func TestNewPage_Validation(t *testing.T) {
	cases := []struct {
		number, size int
		ok           bool
	}{
		{1, 1, true},
		{3, MaxSize, true},
		{0, 10, false},
		{-1, 10, false},
		{1, 0, false},
		{1, MaxSize + 1, false},
	}
	for _, tc := range cases {
		_, err := NewPage(tc.number, tc.size)
		if tc.ok && err != nil {
			t.Fatalf("NewPage(%d, %d) unexpected error %v", tc.number, tc.size, err)
		}
		if !tc.ok && !errors.Is(err, model.ErrValidation) {
			t.Fatalf("NewPage(%d, %d) expected ErrValidation, got %v", tc.number, tc.size, err)
		}
	}
}

func TestPage_Offset(t *testing.T) {
	p, _ := NewPage(3, 2)
	if p.Offset() != 4 || p.Limit() != 2 {
		t.Fatalf("offset=%d limit=%d", p.Offset(), p.Limit())
	}
}

func TestSlice(t *testing.T) {
	items := []int{5, 4, 3, 2, 1}
	cases := []struct {
		page int
		want []int
	}{
		{1, []int{5, 4}},
		{2, []int{3, 2}},
		{3, []int{1}},
		{4, []int{}},
	}
	for _, tc := range cases {
		p, _ := NewPage(tc.page, 2)
		got := Slice(items, p)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("page %d = %v, want %v", tc.page, got, tc.want)
		}
	}
}

func TestPage_HugeNumberIsPastTheEnd(t *testing.T) {
	p, err := NewPage(1<<62, 4)
	if err != nil {
		t.Fatalf("NewPage() error = %v", err)
	}
	if p.Offset() != math.MaxInt {
		t.Fatalf("Offset() = %d, want saturation at MaxInt", p.Offset())
	}
	if got := Slice([]int{1, 2, 3, 4, 5}, p); len(got) != 0 {
		t.Fatalf("Slice() = %v, want empty", got)
	}

	last, _ := NewPage(math.MaxInt, MaxSize)
	if last.Offset() != math.MaxInt {
		t.Fatalf("Offset() = %d", last.Offset())
	}
}
