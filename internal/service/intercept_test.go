package service

import (
	"errors"
	"net/http"
	"testing"

	"frontend-proxy-go/internal/model"
)

func TestCartEvent(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		cookie   string
		wantUser string
		wantProd string
		wantQty  *string
		wantErr  error
	}{
		{
			name:     "product and quantity with session",
			body:     "product_id=OLJCESPC7Z&quantity=3",
			cookie:   "session_id=user-456",
			wantUser: "user-456",
			wantProd: "OLJCESPC7Z",
			wantQty:  strPtr("3"),
		},
		{
			name:     "no session cookie",
			body:     "product_id=P",
			wantUser: model.DefaultUserID,
			wantProd: "P",
		},
		{
			name:     "empty session cookie is used as-is",
			body:     "product_id=P",
			cookie:   "session_id=",
			wantUser: "",
			wantProd: "P",
		},
		{
			name:     "other cookies ignored",
			body:     "product_id=P&quantity=1",
			cookie:   "user_pref=dark",
			wantUser: model.DefaultUserID,
			wantProd: "P",
			wantQty:  strPtr("1"),
		},
		{
			name:     "repeated product_id takes first non-blank",
			body:     "product_id=&product_id=B&product_id=C",
			wantUser: model.DefaultUserID,
			wantProd: "B",
		},
		{
			name:     "blank quantity is absent",
			body:     "product_id=P&quantity=",
			wantUser: model.DefaultUserID,
			wantProd: "P",
		},
		{
			name:     "escaped values decoded",
			body:     "product_id=a%20b%2Bc&quantity=1+2",
			wantUser: model.DefaultUserID,
			wantProd: "a b+c",
			wantQty:  strPtr("1 2"),
		},
		{name: "missing product", body: "quantity=1", wantErr: errMissingProductID},
		{name: "invalid utf-8", body: "\xff\xfe", wantErr: errMalformedForm},
		{
			name:     "invalid escape kept literally",
			body:     "product_id=%zz",
			wantUser: model.DefaultUserID,
			wantProd: "%zz",
		},
		{
			name:     "semicolon stays in value",
			body:     "product_id=P1&note=a;b",
			wantUser: model.DefaultUserID,
			wantProd: "P1",
		},
		{
			name:     "invalid escape in another field",
			body:     "product_id=P2&x=%zz",
			wantUser: model.DefaultUserID,
			wantProd: "P2",
		},
		{
			name:     "pair without equals ignored",
			body:     "flag&product_id=P3&quantity=2%",
			wantUser: model.DefaultUserID,
			wantProd: "P3",
			wantQty:  strPtr("2%"),
		},
		{name: "bare product_id key", body: "product_id", wantErr: errMissingProductID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.cookie != "" {
				header.Set("Cookie", tt.cookie)
			}
			pr := newProxyRequest(http.MethodPost, "/cart", tt.body, header)

			ev, err := cartEvent(pr, "session_id")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("cartEvent() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("cartEvent() error = %v", err)
			}

			if ev.Topic != model.TopicUserActivity || ev.Event != model.EventItemAddedToCart {
				t.Errorf("topic/event = %q/%q", ev.Topic, ev.Event)
			}
			if ev.Data.UserID != tt.wantUser {
				t.Errorf("UserID = %q, want %q", ev.Data.UserID, tt.wantUser)
			}
			if ev.Data.ProductID != tt.wantProd {
				t.Errorf("ProductID = %q, want %q", ev.Data.ProductID, tt.wantProd)
			}
			switch {
			case tt.wantQty == nil && ev.Data.Quantity != nil:
				t.Errorf("Quantity = %q, want nil", *ev.Data.Quantity)
			case tt.wantQty != nil && (ev.Data.Quantity == nil || *ev.Data.Quantity != *tt.wantQty):
				t.Errorf("Quantity = %v, want %q", ev.Data.Quantity, *tt.wantQty)
			}
		})
	}
}

func TestCartEvent_CustomCookieName(t *testing.T) {
	header := http.Header{"Cookie": {"session_id=wrong; shop_session=right"}}
	pr := newProxyRequest(http.MethodPost, "/cart", "product_id=P", header)

	ev, err := cartEvent(pr, "shop_session")
	if err != nil {
		t.Fatalf("cartEvent() error = %v", err)
	}
	if ev.Data.UserID != "right" {
		t.Errorf("UserID = %q, want right", ev.Data.UserID)
	}
}

func strPtr(s string) *string { return &s }
