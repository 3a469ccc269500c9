package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/farkhanisturkia/mapsReactGo/internal/geo"
)

var current = geo.Point{Name: "Current", Lat: -6.2, Lng: 106.8}

func TestRequestRoute_NoPointsIsLocalError(t *testing.T) {
	sender := &scriptedSender{}
	r := NewRouteRequester(sender, "http://routes.test/api/route", current, staticPoints(nil))

	err := r.RequestRoute(context.Background())
	if !errors.Is(err, ErrNoPoints) {
		t.Fatalf("error = %v, want ErrNoPoints", err)
	}
	if KindOf(err) != KindValidation {
		t.Errorf("kind = %v, want validation", KindOf(err))
	}
	if sender.calls() != 0 {
		t.Errorf("sender called %d times, want 0", sender.calls())
	}

	st := r.State()
	if st.Phase != Failed || st.Err != ErrNoPoints.Error() {
		t.Errorf("state = %+v", st)
	}
	if r.Busy() {
		t.Error("busy after local validation failure")
	}
}

func TestRequestRoute_RoundTrip(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/data.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"A","lat":1,"lng":2}]`))
	})
	mux.HandleFunc("/api/route", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		var req RouteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Current != current {
			t.Errorf("current = %+v, want %+v", req.Current, current)
		}
		if len(req.Points) != 1 || req.Points[0] != (geo.Point{Name: "A", Lat: 1, Lng: 2}) {
			t.Errorf("points = %+v", req.Points)
		}
		_, _ = w.Write([]byte(`{"route":[{"name":"A","lat":1,"lng":2}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	loader := NewPointLoader(srv.Client(), srv.URL+"/data.json")
	if err := loader.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	r := NewRouteRequester(srv.Client(), srv.URL+"/api/route", current, loader)

	if err := r.RequestRoute(context.Background()); err != nil {
		t.Fatalf("request route: %v", err)
	}

	want := []geo.Point{{Name: "A", Lat: 1, Lng: 2}}
	if !slices.Equal(r.Route(), want) {
		t.Errorf("route = %+v, want %+v", r.Route(), want)
	}
	st := r.State()
	if st.Phase != Succeeded || st.Err != "" {
		t.Errorf("state = %+v, want succeeded without error", st)
	}
}

func TestRequestRoute_SecondTriggerWhilePendingIsIgnored(t *testing.T) {
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	sender := &scriptedSender{replies: []func(*http.Request) (*http.Response, error){
		func(*http.Request) (*http.Response, error) {
			started <- struct{}{}
			<-release
			return jsonResponse(http.StatusOK, `{"route":[{"name":"A","lat":1,"lng":2}]}`), nil
		},
	}}
	r := NewRouteRequester(sender, "http://routes.test/api/route", current, staticPoints{{Name: "A", Lat: 1, Lng: 2}})

	done := make(chan error, 1)
	go func() { done <- r.RequestRoute(context.Background()) }()
	<-started

	if !r.Busy() {
		t.Fatal("busy flag not set while the first request is in flight")
	}
	if err := r.RequestRoute(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("second trigger error = %v, want ErrBusy", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first request: %v", err)
	}
	if sender.calls() != 1 {
		t.Errorf("sender called %d times, want exactly 1", sender.calls())
	}
	if r.Busy() {
		t.Error("busy after completion")
	}
}

func TestRequestRoute_BusyClearedOnEveryPath(t *testing.T) {
	cases := []struct {
		name      string
		reply     func(*http.Request) (*http.Response, error)
		wantPhase Phase
		wantKind  Kind
	}{
		{name: "success", reply: reply(http.StatusOK, `{"route":[]}`), wantPhase: Succeeded},
		{name: "http error", reply: reply(http.StatusBadGateway, ``), wantPhase: Failed, wantKind: KindStatus},
		{name: "network error", reply: fail(errors.New("no route to host")), wantPhase: Failed, wantKind: KindTransport},
		{name: "decode error", reply: reply(http.StatusOK, `<html>`), wantPhase: Failed, wantKind: KindDecode},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sender := &scriptedSender{replies: []func(*http.Request) (*http.Response, error){tc.reply}}
			r := NewRouteRequester(sender, "http://routes.test/api/route", current, staticPoints{{Name: "A", Lat: 1, Lng: 2}})

			err := r.RequestRoute(context.Background())
			if KindOf(err) != tc.wantKind {
				t.Errorf("kind = %v, want %v (err=%v)", KindOf(err), tc.wantKind, err)
			}
			if r.Busy() {
				t.Error("busy flag still set after completion")
			}
			if r.State().Phase != tc.wantPhase {
				t.Errorf("phase = %v, want %v", r.State().Phase, tc.wantPhase)
			}
		})
	}
}

func TestRequestRoute_PanicWhileDecodingClearsBusy(t *testing.T) {
	sender := &scriptedSender{replies: []func(*http.Request) (*http.Response, error){panicking()}}
	r := NewRouteRequester(sender, "http://routes.test/api/route", current, staticPoints{{Name: "A", Lat: 1, Lng: 2}})

	mustPanic(t, func() { _ = r.RequestRoute(context.Background()) })

	if r.Busy() {
		t.Fatal("busy flag stuck after panic")
	}
	if r.State().Phase != Failed {
		t.Errorf("phase = %v, want failed", r.State().Phase)
	}
}

func TestRequestRoute_FailureKeepsPreviousRoute(t *testing.T) {
	sender := &scriptedSender{replies: []func(*http.Request) (*http.Response, error){
		reply(http.StatusOK, `{"route":[{"name":"Current","lat":-6.2,"lng":106.8},{"name":"A","lat":1,"lng":2}]}`),
		reply(http.StatusServiceUnavailable, `{"error":"planner offline"}`),
	}}
	r := NewRouteRequester(sender, "http://routes.test/api/route", current, staticPoints{{Name: "A", Lat: 1, Lng: 2}})

	if err := r.RequestRoute(context.Background()); err != nil {
		t.Fatalf("first request: %v", err)
	}
	previous := r.Route()

	err := r.RequestRoute(context.Background())
	if err == nil {
		t.Fatal("second request: expected error")
	}

	if !slices.Equal(r.Route(), previous) {
		t.Errorf("route = %+v, want previous %+v", r.Route(), previous)
	}
	st := r.State()
	if st.Phase != Failed {
		t.Errorf("phase = %v, want failed", st.Phase)
	}
	if !strings.Contains(st.Err, "503") || !strings.Contains(st.Err, "planner offline") {
		t.Errorf("error %q should carry status and server detail", st.Err)
	}
}

func TestRequestRoute_NewAttemptClearsError(t *testing.T) {
	sender := &scriptedSender{replies: []func(*http.Request) (*http.Response, error){
		reply(http.StatusInternalServerError, ``),
		reply(http.StatusOK, `{"route":[{"name":"A","lat":1,"lng":2}]}`),
	}}
	r := NewRouteRequester(sender, "http://routes.test/api/route", current, staticPoints{{Name: "A", Lat: 1, Lng: 2}})

	_ = r.RequestRoute(context.Background())
	if r.State().Err == "" {
		t.Fatal("expected an error after the failed attempt")
	}
	if err := r.RequestRoute(context.Background()); err != nil {
		t.Fatalf("second request: %v", err)
	}
	if r.State().Err != "" {
		t.Errorf("error = %q, want cleared after success", r.State().Err)
	}
}
