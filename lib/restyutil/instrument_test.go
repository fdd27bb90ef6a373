package restyutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	mu       sync.Mutex
	messages map[string]string
}

func (o *memoryOutput) Write(id, contents string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages[id] = contents
}

func TestInstrumentClientWritesExchanges(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		w.Write([]byte(`{"colors": []}`))
	}))
	defer server.Close()

	output := &memoryOutput{messages: map[string]string{}}
	client := resty.New()
	InstrumentClient(client, nil, output)

	_, err := client.R().Get(server.URL + "/product?color=black")
	if err != nil {
		t.Fatal(err)
	}
	_, err = client.R().SetBody(`{"query": "{ product }"}`).Post(server.URL + "/graphql")
	if err != nil {
		t.Fatal(err)
	}

	require.Len(t, output.messages, 2)
	get := output.messages["0001-GET.txt"]
	require.True(t, strings.HasPrefix(get, "---- REQUEST ----\n\nGET "+server.URL+"/product?color=black"))
	require.Contains(t, get, "---- RESPONSE ----\n\n200 ")
	require.Contains(t, get, `{"colors": []}`)

	post := output.messages["0002-POST.txt"]
	require.Contains(t, post, `{"query": "{ product }"}`)
}

func TestFormatHeadersSorted(t *testing.T) {
	headers := http.Header{}
	headers.Add("X-B", "2")
	headers.Add("Accept", "text/html")
	headers.Add("X-B", "3")
	require.Equal(t, "Accept: text/html\nX-B: 2\nX-B: 3", formatHeaders(headers))
	require.Equal(t, "", formatHeaders(http.Header{}))
}
