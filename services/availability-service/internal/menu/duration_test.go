package menu

import "testing"

func testConfig() Config {
	return Config{
		Menus: []Item{
			{Name: "和装プラン", Minutes: 30},
			{Name: "洋装プランA", Minutes: 60},
		},
		Options: []Item{
			{Name: "眉カット", Minutes: 30},
		},
		VisitAdjust: VisitAdjust{First: 30, Repeat: 0},
	}
}

func TestComputeTotalMinutes(t *testing.T) {
	cfg := testConfig()
	cases := []struct {
		name    string
		visit   string
		menus   []string
		options []string
		want    int
	}{
		{name: "first visit with menus and option", visit: VisitFirst, menus: []string{"和装プラン", "洋装プランA"}, options: []string{"眉カット"}, want: 150},
		{name: "repeat visit single menu", visit: VisitRepeat, menus: []string{"洋装プランA"}, want: 60},
		{name: "empty visit counts as repeat", visit: "", menus: []string{"和装プラン"}, want: 30},
		{name: "unknown names add nothing", visit: VisitRepeat, menus: []string{"存在しない"}, options: []string{"?"}, want: 0},
		{name: "nothing selected", visit: VisitFirst, want: 30},
		{name: "repeated names count once", visit: VisitRepeat, menus: []string{"洋装プランA", "洋装プランA"}, options: []string{"眉カット", "眉カット"}, want: 90},
	}
	for _, tc := range cases {
		if got := ComputeTotalMinutes(tc.visit, tc.menus, tc.options, cfg); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestComputeTotalMinutes_RepeatAdjustApplied(t *testing.T) {
	cfg := testConfig()
	cfg.VisitAdjust.Repeat = 10
	if got := ComputeTotalMinutes("3回目", []string{"洋装プランA"}, nil, cfg); got != 70 {
		t.Fatalf("expected 70, got %d", got)
	}
}

func TestSelectionTotalMinutes(t *testing.T) {
	sel := Selection{VisitCount: VisitFirst, Menus: []string{"洋装プランA"}, Options: []string{"眉カット"}}
	if got := sel.TotalMinutes(testConfig()); got != 120 {
		t.Fatalf("expected 120, got %d", got)
	}
}

func TestUnmatchedNames(t *testing.T) {
	got := UnmatchedNames([]string{"和装プラン", "謎"}, []string{"眉カット", "ネイル"}, testConfig())
	if len(got) != 2 || got[0] != "謎" || got[1] != "ネイル" {
		t.Fatalf("unexpected unmatched names %v", got)
	}
}
