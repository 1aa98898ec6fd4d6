package db

import (
	"context"
	"reflect"
	"testing"
)

func TestMarshalStringArray(t *testing.T) {
	t.Parallel()

	got := marshalStringArray(nil)
	if string(got) != "[]" {
		t.Fatalf("marshalStringArray(nil) = %s, want []", got)
	}

	got = marshalStringArray([]string{"https://a.example/1", "https://b.example/2"})
	want := `["https://a.example/1","https://b.example/2"]`
	if string(got) != want {
		t.Fatalf("marshalStringArray = %s, want %s", got, want)
	}
}

func TestUnmarshalStringArray(t *testing.T) {
	t.Parallel()

	if got := unmarshalStringArray(nil); got != nil {
		t.Fatalf("unmarshalStringArray(nil) = %v, want nil", got)
	}
	if got := unmarshalStringArray([]byte(`not json`)); got != nil {
		t.Fatalf("unmarshalStringArray(garbage) = %v, want nil", got)
	}

	got := unmarshalStringArray([]byte(`["tavily","wikipedia"]`))
	want := []string{"tavily", "wikipedia"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unmarshalStringArray = %v, want %v", got, want)
	}
}

func TestExistingURLQuery(t *testing.T) {
	t.Parallel()

	urls := []string{"http://x", "http://y", "http://z"}
	q, args := existingURLQuery(urls)

	want := `SELECT DISTINCT url FROM news.item_sources WHERE url IN ($1, $2, $3)`
	if q != want {
		t.Fatalf("query = %s, want %s", q, want)
	}
	if len(args) != len(urls) {
		t.Fatalf("args = %d values, want %d", len(args), len(urls))
	}
	for i, url := range urls {
		if args[i] != url {
			t.Fatalf("args[%d] = %v, want %s", i, args[i], url)
		}
	}
}

func TestStoreNilGuards(t *testing.T) {
	t.Parallel()

	var s *Store
	if got := s.CheckExistingURLs(context.Background(), []string{"https://a.example/1"}); len(got) != 0 {
		t.Fatalf("nil store CheckExistingURLs returned %v, want empty", got)
	}
	if got := s.AllURLs(context.Background()); len(got) != 0 {
		t.Fatalf("nil store AllURLs returned %v, want empty", got)
	}
	if _, err := s.SaveItems(context.Background(), nil); err == nil {
		t.Fatal("nil store SaveItems returned no error")
	}
	if _, err := s.CountItems(context.Background()); err == nil {
		t.Fatal("nil store CountItems returned no error")
	}
}
