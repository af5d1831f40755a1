package metadata

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nupkg(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buffer bytes.Buffer
	archive := zip.NewWriter(&buffer)
	for name, content := range files {
		writer, err := archive.Create(name)
		require.NoError(t, err)
		_, err = writer.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, archive.Close())
	return buffer.Bytes()
}

func TestDownloaderPicksNewestStable(t *testing.T) {
	pkg := nupkg(t, map[string]string{
		"README.md":           "readme",
		"Windows.Win32.winmd": "metadata",
	})

	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/index.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"resources":[{"@id":"%s/flat/","@type":"PackageBaseAddress/3.0.0"}]}`, server.URL)
	})
	mux.HandleFunc("/flat/"+nugetName+"/index.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"versions":["9.0.0","61.0.15","62.0.1-preview","10.2.0"]}`)
	})
	mux.HandleFunc("/flat/"+nugetName+"/61.0.15/"+nugetName+".61.0.15.nupkg", func(w http.ResponseWriter, r *http.Request) {
		w.Write(pkg)
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	target := filepath.Join(t.TempDir(), "Windows.Win32.winmd")
	downloader := &Downloader{Index: server.URL + "/index.json", Client: server.Client()}
	require.NoError(t, downloader.Download(context.Background(), target))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "metadata", string(data))
}

func TestDownloaderReportsHTTPFailures(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	downloader := &Downloader{Index: server.URL + "/index.json", Client: server.Client()}
	err := downloader.Download(context.Background(), filepath.Join(t.TempDir(), "out.winmd"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestLatestVersion(t *testing.T) {
	latest, err := latestVersion([]string{"1.0.0-beta", "0.9.0"})
	require.NoError(t, err)
	assert.Equal(t, "0.9.0", latest)

	latest, err = latestVersion([]string{"1.0.0-beta"})
	require.NoError(t, err)
	assert.Equal(t, "1.0.0-beta", latest)

	_, err = latestVersion(nil)
	assert.Error(t, err)

	_, err = latestVersion([]string{"not a version"})
	assert.Error(t, err)
}

func TestExtractWinMdRequiresMetadataFile(t *testing.T) {
	_, err := extractWinMd(nupkg(t, map[string]string{"lib/readme.txt": "x"}))
	assert.Error(t, err)
}
