package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name      string
		sev       Severity
		cat       Category
		wantTitle string
		wantText  string
	}{
		{"database failure", SeverityFailure, CategoryDatabase,
			"ERROR: Database scaling failed for: shop",
			"The database scaling for staging shop was not executed\n\nDetails:\nboom"},
		{"server failure", SeverityFailure, CategoryServer,
			"ERROR: Pod scaling failed for: shop",
			"The server scaling for staging shop was not executed\n\nDetails:\nboom"},
		{"init failure", SeverityFailure, CategoryInit,
			"ERROR: Pod autoscaler failed to run due to shop", "\n\nDetails:\nboom"},
		{"token failure", SeverityFailure, CategoryToken,
			"ERROR: Failed to retrieve session token due to shop", "\n\nDetails:\nboom"},
		{"sync failure", SeverityFailure, CategorySync,
			"ERROR: Syncing failed for: shop", "\n\nDetails:\nboom"},
		{"database warning", SeverityWarning, CategoryDatabase,
			"WARN: Database scaling skipped for: shop",
			"The database scaling for staging shop is skipped\n\nDetails:\nboom"},
		{"server warning", SeverityWarning, CategoryServer,
			"WARN: Pod scaling failed for: shop",
			"The server scaling for staging shop is skipped\n\nDetails:\nboom"},
		{"generic warning", SeverityWarning, CategorySync,
			"WARN: sync skipped for: shop",
			"The sync scaling for staging shop is skipped\n\nDetails:\nboom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Format(tt.sev, tt.cat, "shop", "boom")
			assert.Equal(t, tt.wantTitle, m.Title)
			assert.Equal(t, tt.wantText, m.Text)
		})
	}

	assert.Equal(t, "#DC143C", Format(SeverityFailure, CategorySync, "s", "m").Color())
	assert.Equal(t, "#F4BB44", Format(SeverityWarning, CategorySync, "s", "m").Color())
}

func TestSlack_Post(t *testing.T) {
	var path string
	var form map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		path = r.URL.Path
		form = r.PostForm
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	s := NewSlack(SlackConfig{
		Token:    "xoxb-1",
		Channel:  "#alerts-autoscaler",
		Redirect: "example.com",
		APIURL:   srv.URL,
	})
	s.now = func() time.Time { return time.Unix(1760000000, 0) }

	s.Fail(context.Background(), CategoryServer, "shop.staging", "patch failed")

	assert.Equal(t, "/chat.postMessage", path)
	assert.Equal(t, []string{"xoxb-1"}, form["token"])
	assert.Equal(t, []string{"#alerts-autoscaler"}, form["channel"])

	var attachments []attachment
	require.NoError(t, json.Unmarshal([]byte(form["attachments"][0]), &attachments))
	require.Len(t, attachments, 1)
	assert.Equal(t, attachment{
		Color:      "#DC143C",
		Title:      "ERROR: Pod scaling failed for: shop.staging",
		TitleLink:  "example.com",
		Text:       "The server scaling for staging shop.staging was not executed\n\nDetails:\npatch failed",
		Footer:     "Pod Autoscaler",
		FooterIcon: footerIcon,
		Ts:         1760000000,
	}, attachments[0])
}

func TestSlack_ErrorsAreSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	defer srv.Close()

	s := NewSlack(SlackConfig{Token: "t", Channel: "#nope", APIURL: srv.URL})

	err := s.send(context.Background(), Format(SeverityWarning, CategoryDatabase, "shop", "x"))
	assert.EqualError(t, err, "slack error: channel_not_found")

	assert.NotPanics(t, func() {
		s.Warn(context.Background(), CategoryDatabase, "shop", "x")
	})
}

func TestSlack_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	s := NewSlack(SlackConfig{Token: "t", APIURL: srv.URL, Timeout: 20 * time.Millisecond})
	err := s.send(context.Background(), Format(SeverityFailure, CategoryInit, "config", "x"))
	assert.Error(t, err)
}

func TestWithCounter(t *testing.T) {
	var counted []string
	n := WithCounter(Noop{}, func(cat Category, sev Severity) {
		counted = append(counted, string(cat)+"/"+sev.String())
	})

	n.Warn(context.Background(), CategoryDatabase, "shop", "not found")
	n.Fail(context.Background(), CategoryToken, "Session Token", "401")

	assert.Equal(t, []string{"database/warning", "token/error"}, counted)
}
