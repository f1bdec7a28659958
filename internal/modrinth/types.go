package modrinth

import "time"

// ProjectType classifies a catalog project and determines where its
// files are installed locally.
type ProjectType string

const (
	TypeMod          ProjectType = "mod"
	TypeShader       ProjectType = "shader"
	TypeResourcepack ProjectType = "resourcepack"
)

// Valid reports whether the project type is one this tool can manage.
func (t ProjectType) Valid() bool {
	switch t {
	case TypeMod, TypeShader, TypeResourcepack:
		return true
	}
	return false
}

// Channel is a release channel on the catalog.
type Channel string

const (
	ChannelRelease Channel = "release"
	ChannelBeta    Channel = "beta"
	ChannelAlpha   Channel = "alpha"
)

// Rank maps channels onto the stability total order used for filtering:
// release(2) > beta(1) > alpha(0). Unknown channels rank below alpha so
// they never pass a configured floor.
func (c Channel) Rank() int {
	switch c {
	case ChannelRelease:
		return 2
	case ChannelBeta:
		return 1
	case ChannelAlpha:
		return 0
	}
	return -1
}

// Valid reports whether the channel is one the catalog defines.
func (c Channel) Valid() bool {
	return c.Rank() >= 0
}

// Project is catalog metadata for a single project.
type Project struct {
	ID          string      `json:"id"`
	Slug        string      `json:"slug"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	ProjectType ProjectType `json:"project_type"`
	Downloads   int64       `json:"downloads"`
	IconURL     string      `json:"icon_url"`
	Versions    []string    `json:"versions"`
}

// Hashes holds the content hashes the catalog publishes per file.
// SHA512 is authoritative for verification; SHA1 is kept for
// interoperability with other launchers.
type Hashes struct {
	SHA512 string `json:"sha512"`
	SHA1   string `json:"sha1"`
}

// File is one downloadable artifact of a version.
type File struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Hashes   Hashes `json:"hashes"`
	Primary  bool   `json:"primary"`
}

// Version is an immutable snapshot of one published version of a project.
type Version struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	VersionNumber string    `json:"version_number"`
	VersionType   Channel   `json:"version_type"`
	GameVersions  []string  `json:"game_versions"`
	Loaders       []string  `json:"loaders"`
	Files         []File    `json:"files"`
	DatePublished time.Time `json:"date_published"`
}

// SearchHit is a single result row from the search endpoint.
type SearchHit struct {
	Slug        string      `json:"slug"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	ProjectType ProjectType `json:"project_type"`
	Downloads   int64       `json:"downloads"`
}

// SearchResult is a page of search hits.
type SearchResult struct {
	Hits      []SearchHit `json:"hits"`
	TotalHits int         `json:"total_hits"`
	Offset    int         `json:"offset"`
	Limit     int         `json:"limit"`
}
