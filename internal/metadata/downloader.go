package metadata

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-version"

	"winmdgen/internal/errors"
	"winmdgen/internal/logger"
)

const definitionAddress string = "https://api.nuget.org/v3/index.json"
const nugetName string = "microsoft.windows.sdk.win32metadata"

// Downloader fetches the newest Win32 metadata package from a NuGet feed.
type Downloader struct {
	// Index is the NuGet service index; defaults to nuget.org.
	Index  string
	Client *http.Client
}

// DownloadMetadata stores the .winmd of the newest stable package at path.
func DownloadMetadata(ctx context.Context, metadataFileName string) error {
	return (&Downloader{}).Download(ctx, metadataFileName)
}

// Download stores the .winmd of the newest stable package at path.
func (d *Downloader) Download(ctx context.Context, metadataFileName string) error {
	baseAddress, err := d.getBaseAddress(ctx)
	if err != nil {
		return err
	}

	versionsResponse, err := d.queryGet(ctx, fmt.Sprintf("%s%s/index.json", baseAddress, nugetName))
	if err != nil {
		return errors.Wrap(err, "listing package versions")
	}
	versions, err := parse[map[string][]string](versionsResponse)
	if err != nil {
		return errors.Wrap(err, "decoding package versions")
	}

	latest, err := latestVersion(versions["versions"])
	if err != nil {
		return err
	}
	logger.Logger.Infow("Downloading metadata", logger.FieldVersion, latest)

	nugetBytes, err := d.queryGet(ctx, fmt.Sprintf("%s%s/%s/%s.%s.nupkg", baseAddress, nugetName, latest, nugetName, latest))
	if err != nil {
		return errors.Wrapf(err, "downloading package %s", latest)
	}

	metadataBytes, err := extractWinMd(nugetBytes)
	if err != nil {
		return errors.Wrapf(err, "package %s", latest)
	}
	if err := os.WriteFile(metadataFileName, metadataBytes, 0644); err != nil {
		return errors.Wrap(err, "writing metadata")
	}
	logger.Logger.Infow("Metadata stored", logger.FieldPath, metadataFileName)
	return nil
}

// Pre-release versions are skipped unless nothing else is published.
func latestVersion(versionStrings []string) (string, error) {
	var stable, all []*version.Version
	for _, versionString := range versionStrings {
		v, err := version.NewVersion(versionString)
		if err != nil {
			return "", errors.Wrapf(err, "parsing version %q", versionString)
		}
		all = append(all, v)
		if v.Prerelease() == "" {
			stable = append(stable, v)
		}
	}
	if len(stable) > 0 {
		all = stable
	}
	if len(all) == 0 {
		return "", errors.Newf("no published versions of %s", nugetName)
	}

	sort.Sort(version.Collection(all))
	return all[len(all)-1].Original(), nil
}

func extractWinMd(nugetBytes []byte) ([]byte, error) {
	bytesReader := bytes.NewReader(nugetBytes)
	nuget, err := zip.NewReader(bytesReader, int64(bytesReader.Len()))
	if err != nil {
		return nil, errors.Wrap(err, "opening package")
	}
	for _, file := range nuget.File {
		if filepath.Ext(file.Name) != ".winmd" {
			continue
		}
		reader, err := file.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s", file.Name)
		}
		defer reader.Close()
		return io.ReadAll(reader)
	}
	return nil, errors.New("no .winmd file in package")
}

func (d *Downloader) getBaseAddress(ctx context.Context) (string, error) {
	index := d.Index
	if index == "" {
		index = definitionAddress
	}
	response, err := d.queryGet(ctx, index)
	if err != nil {
		return "", errors.Wrap(err, "fetching service index")
	}
	nugetIndex, err := parse[nugetIndex](response)
	if err != nil {
		return "", errors.Wrap(err, "decoding service index")
	}

	for _, resource := range nugetIndex.Resources {
		if strings.Contains(resource.Type, "PackageBaseAddress") {
			return resource.Id, nil
		}
	}
	return "", errors.New("service index has no PackageBaseAddress resource")
}

func parse[T interface{}](source []byte) (T, error) {
	var parsedBody T
	err := json.Unmarshal(source, &parsedBody)
	return parsedBody, err
}

func (d *Downloader) queryGet(ctx context.Context, url string) ([]byte, error) {
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	response, err := client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, errors.Newf("GET %s: %s", url, response.Status)
	}
	return io.ReadAll(response.Body)
}

type nugetIndex struct {
	Resources []nugetResource `json:"resources"`
}

type nugetResource struct {
	Id   string `json:"@id"`
	Type string `json:"@type"`
}
