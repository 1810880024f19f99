package tests

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"

	"github.com/labstack/echo/v4"

	. "github.com/somo-lms/somo/apps/api/echo"
	"github.com/somo-lms/somo/core"
)

func Test_Ordering_Bind(t *testing.T) {
	e := echo.New()
	newCtx := func(ordering string) echo.Context {
		q := url.Values{"ordering": {ordering}}
		req := httptest.NewRequest(http.MethodGet, "/?"+q.Encode(), nil)
		return e.NewContext(req, httptest.NewRecorder())
	}
	allowed := []string{"title", "price", "created_at"}

	tests := []struct {
		name     string
		ordering string
		want     []core.DBOrdering
	}{
		{
			name:     "allowed fields with direction",
			ordering: "-price,title",
			want: []core.DBOrdering{
				{Field: "price"},
				{Field: "title", Ascending: true},
			},
		},
		{
			name:     "unknown column is dropped",
			ordering: "title,teacher_id",
			want:     []core.DBOrdering{{Field: "title", Ascending: true}},
		},
		{
			name:     "sql expressions are dropped",
			ordering: `(SELECT password_hash FROM "user" LIMIT 1),created_at`,
			want:     []core.DBOrdering{{Field: "created_at", Ascending: true}},
		},
		{
			name:     "nothing allowed binds nothing",
			ordering: "1;DROP TABLE course",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ord := new(Ordering)
			ord.Bind(newCtx(tt.ordering), allowed...)
			if !reflect.DeepEqual(ord.Orderings, tt.want) {
				t.Errorf("Orderings = %v; want %v", ord.Orderings, tt.want)
			}
		})
	}
}
