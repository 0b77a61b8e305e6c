package content

import "sort"

// PlatformSelection is the set of image platforms picked for a
// platform_image or multi_platform_image request.
type PlatformSelection struct {
	selected map[string]bool
}

func NewPlatformSelection() *PlatformSelection {
	return &PlatformSelection{selected: make(map[string]bool)}
}

// Toggle flips a single platform. Unknown platforms are ignored.
func (s *PlatformSelection) Toggle(platform string) {
	if !KnownImagePlatform(platform) {
		return
	}
	if s.selected[platform] {
		delete(s.selected, platform)
	} else {
		s.selected[platform] = true
	}
}

// ToggleCategory atomically selects every platform in the category if
// any of them is unselected, otherwise deselects them all.
func (s *PlatformSelection) ToggleCategory(category string) {
	members, ok := ImagePlatformsIn(category)
	if !ok {
		return
	}

	allSelected := true
	for _, m := range members {
		if !s.selected[m] {
			allSelected = false
			break
		}
	}

	for _, m := range members {
		if allSelected {
			delete(s.selected, m)
		} else {
			s.selected[m] = true
		}
	}
}

// Selected returns the chosen platforms, sorted for deterministic
// request payloads and pricing keys.
func (s *PlatformSelection) Selected() []string {
	out := make([]string, 0, len(s.selected))
	for p := range s.selected {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether a platform is selected.
func (s *PlatformSelection) Contains(platform string) bool {
	return s.selected[platform]
}

// Count returns the number of selected platforms.
func (s *PlatformSelection) Count() int {
	return len(s.selected)
}

// Clear removes every selection.
func (s *PlatformSelection) Clear() {
	s.selected = make(map[string]bool)
}
