// Package resolver selects which remote version of a project should be
// installed. It is pure: no I/O, deterministic for a given version list
// and criteria.
package resolver

import (
	"errors"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/mcpax/mcpax-cli/internal/modrinth"
)

// ErrAmbiguousFile is returned when a version carries several files and
// none is flagged primary. The resolver never guesses.
var ErrAmbiguousFile = errors.New("version has multiple files and none flagged primary")

// Criteria is the compatibility filter for one resolution.
type Criteria struct {
	// GameVersion is the required target platform version tag, e.g. "1.21.1".
	GameVersion string
	// Loader is the required loader tag for mods ("fabric", "forge", ...).
	// Shaders and resource packs are loader-agnostic and skip this filter.
	Loader string
	// Channel is the stability floor: versions on a less stable channel
	// are excluded. ChannelAlpha admits everything.
	Channel modrinth.Channel
	// Pin, when set, demands exactly that version (matched against the
	// version id or the version number) and bypasses channel/recency.
	Pin string
	// ProjectType decides which filters apply.
	ProjectType modrinth.ProjectType
}

// loaderApplies reports whether the loader tag participates in filtering
// for this project type.
func (c Criteria) loaderApplies() bool {
	return c.ProjectType == modrinth.TypeMod && c.Loader != ""
}

// Compatible filters versions to those satisfying the criteria and
// returns them newest first. Ties on publication time are broken by
// version id so the ordering is total.
func Compatible(versions []modrinth.Version, crit Criteria) []modrinth.Version {
	floor := crit.Channel.Rank()
	if crit.Channel == "" {
		floor = modrinth.ChannelRelease.Rank()
	}

	var out []modrinth.Version
	for _, v := range versions {
		if crit.GameVersion != "" && !containsString(v.GameVersions, crit.GameVersion) {
			continue
		}
		if crit.loaderApplies() && !containsFold(v.Loaders, crit.Loader) {
			continue
		}
		if v.VersionType.Rank() < floor {
			continue
		}
		out = append(out, v)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DatePublished.Equal(out[j].DatePublished) {
			return out[i].DatePublished.After(out[j].DatePublished)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// SelectBest picks the version to install. With a pin it is exact match
// or nothing; otherwise the newest compatible version. The second return
// is false when no candidate passes, which is an expected business
// outcome (incompatible), not an error.
func SelectBest(versions []modrinth.Version, crit Criteria) (*modrinth.Version, bool) {
	if crit.Pin != "" {
		for i := range versions {
			if versions[i].ID == crit.Pin || versions[i].VersionNumber == crit.Pin {
				v := versions[i]
				return &v, true
			}
		}
		return nil, false
	}

	compatible := Compatible(versions, crit)
	if len(compatible) == 0 {
		return nil, false
	}
	v := compatible[0]
	return &v, true
}

// PrimaryFile returns the file to download for a version. A single file
// is unambiguous; with several, exactly the one flagged primary is used.
func PrimaryFile(v *modrinth.Version) (*modrinth.File, error) {
	switch len(v.Files) {
	case 0:
		return nil, errors.New("version has no files")
	case 1:
		return &v.Files[0], nil
	}
	for i := range v.Files {
		if v.Files[i].Primary {
			return &v.Files[i], nil
		}
	}
	return nil, ErrAmbiguousFile
}

// CompareLabels compares two version labels for status display.
// Returns -1/0/+1 like semver.Compare. Labels that do not parse as
// semver compare lexically, so the result is still deterministic.
func CompareLabels(a, b string) int {
	va, vb := canonical(a), canonical(b)
	if semver.IsValid(va) && semver.IsValid(vb) {
		return semver.Compare(va, vb)
	}
	return strings.Compare(a, b)
}

func canonical(s string) string {
	if !strings.HasPrefix(s, "v") {
		s = "v" + s
	}
	return s
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func containsFold(list []string, want string) bool {
	for _, s := range list {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}
