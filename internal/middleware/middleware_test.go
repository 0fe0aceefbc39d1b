package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/splitplus/internal/auth"
	"github.com/mmynk/splitplus/internal/models"
)

type pingRequest struct{}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{header: "Bearer abc.def", want: "abc.def", ok: true},
		{header: "bearer abc.def", want: "abc.def", ok: true},
		{header: "  Bearer   abc  ", want: "abc", ok: true},
		{header: "Basic abc", ok: false},
		{header: "Bearer", ok: false},
		{header: "Bearer ", ok: false},
		{header: "", ok: false},
	}
	for _, tt := range tests {
		got, ok := bearerToken(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Errorf("bearerToken(%q) = %q, %v; want %q, %v", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	user := models.NewUser("erin", "hash")
	token, err := jwtManager.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var seenUser, seenName string
	handler := RequireAuth(jwtManager)(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		seenUser, seenName = GetUserID(ctx), GetUsername(ctx)
		return nil, nil
	})

	tests := []struct {
		name     string
		header   string
		wantCode connect.Code
	}{
		{name: "valid token", header: "Bearer " + token},
		{name: "missing header", wantCode: connect.CodeUnauthenticated},
		{name: "bad token", header: "Bearer nope", wantCode: connect.CodeUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seenUser, seenName = "", ""
			req := connect.NewRequest(&pingRequest{})
			if tt.header != "" {
				req.Header().Set("Authorization", tt.header)
			}

			_, err := handler(context.Background(), req)
			if tt.wantCode == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if seenUser != user.ID || seenName != "erin" {
					t.Errorf("context identity = %q/%q", seenUser, seenName)
				}
				return
			}
			if connect.CodeOf(err) != tt.wantCode {
				t.Errorf("code = %v, want %v", connect.CodeOf(err), tt.wantCode)
			}
			if seenUser != "" {
				t.Error("handler ran for rejected call")
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	var seen string
	handler := OptionalAuth(jwtManager)(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		seen = GetUserID(ctx)
		return nil, nil
	})

	req := connect.NewRequest(&pingRequest{})
	req.Header().Set("Authorization", "Bearer garbage")
	if _, err := handler(context.Background(), req); err != nil {
		t.Fatalf("OptionalAuth must not reject: %v", err)
	}
	if seen != "" {
		t.Errorf("user id = %q, want empty", seen)
	}
}

func TestClientFault(t *testing.T) {
	if !clientFault(connect.CodeOf(connect.NewError(connect.CodeInvalidArgument, errors.New("bad")))) {
		t.Error("InvalidArgument should be a client fault")
	}
	if clientFault(connect.CodeInternal) {
		t.Error("Internal should not be a client fault")
	}
}
