package authz

import "testing"

func TestRouteTable_Classify_DefaultTable(t *testing.T) {
	table := DefaultRouteTable()

	cases := []struct {
		path string
		want RouteClass
	}{
		// Public
		{"/", RoutePublic},
		{"/blog", RoutePublic},
		{"/blog/my-first-post", RoutePublic},
		{"/api/auth/signin", RoutePublic},
		{"/api/cron/cleanup-tokens", RoutePublic},
		{"/health", RoutePublic},
		// Auth
		{"/login", RouteAuth},
		{"/register", RouteAuth},
		// Protected
		{"/dashboard", RouteProtected},
		{"/dashboard/settings", RouteProtected},
		{"/editor", RouteProtected},
		{"/editor/post-1", RouteProtected},
		{"/api/posts", RouteProtected},
		{"/api/posts/abc", RouteProtected},
	}

	for _, tc := range cases {
		if got := table.Classify(tc.path); got != tc.want {
			t.Errorf("Classify(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestRouteTable_Classify_UnmatchedPathIsProtected(t *testing.T) {
	table := DefaultRouteTable()

	// 未分類のパスはfail closedでProtected扱い
	for _, path := range []string{"/admin", "/unknown/deep/path", "/api/internal"} {
		if got := table.Classify(path); got != RouteProtected {
			t.Errorf("Classify(%q) = %v, want RouteProtected", path, got)
		}
	}
}

func TestRouteTable_Classify_PrefixBoundary(t *testing.T) {
	table := DefaultRouteTable()

	// "/blogX" は "/blog" に一致しない（セグメント境界で判定）
	if got := table.Classify("/blogX"); got != RouteProtected {
		t.Errorf("Classify(/blogX) = %v, want RouteProtected", got)
	}

	// "/" はルートパスそのものにのみ一致
	if got := table.Classify("/x"); got != RouteProtected {
		t.Errorf("Classify(/x) = %v, want RouteProtected", got)
	}
}

func TestRouteTable_Classify_LongestPrefixWins(t *testing.T) {
	// 記述順に関わらず最長一致を優先する
	table := NewRouteTable([]RouteRule{
		{Prefix: "/api/billing/webhook", Class: RoutePublic},
		{Prefix: "/api/billing", Class: RouteProtected},
	})

	if got := table.Classify("/api/billing/webhook"); got != RoutePublic {
		t.Errorf("Classify(/api/billing/webhook) = %v, want RoutePublic", got)
	}
	if got := table.Classify("/api/billing/checkout"); got != RouteProtected {
		t.Errorf("Classify(/api/billing/checkout) = %v, want RouteProtected", got)
	}
}

func TestRouteTable_Classify_CaseSensitive(t *testing.T) {
	table := DefaultRouteTable()

	// 大文字小文字は区別する
	if got := table.Classify("/Blog"); got != RouteProtected {
		t.Errorf("Classify(/Blog) = %v, want RouteProtected", got)
	}
}

func TestRouteClass_String(t *testing.T) {
	cases := []struct {
		class RouteClass
		want  string
	}{
		{RoutePublic, "public"},
		{RouteAuth, "auth"},
		{RouteProtected, "protected"},
		{RouteClass(99), "unknown"},
	}
	for _, tc := range cases {
		if got := tc.class.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}
