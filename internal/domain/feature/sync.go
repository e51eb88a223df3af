package feature

// BuildViewModels derives one view model per catalog definition, in catalog
// order. A feature is configured when the store returned a row for it and
// enabled only when that row is enabled.
func BuildViewModels(c *Catalog, remote map[string]RemoteFeature) []ViewModel {
	vms := make([]ViewModel, 0, c.Len())
	for _, d := range c.defs {
		rf, ok := remote[d.Key]
		vms = append(vms, ViewModel{
			FeatureKey: d.Key,
			Enabled:    ok && rf.Enabled,
			Configured: ok,
		})
	}
	return vms
}

// Item pairs a definition with its derived state.
type Item struct {
	Definition
	ViewModel
}

// Section is the display group of one category.
type Section struct {
	Category Category `json:"category"`
	Title    string   `json:"title"`
	Items    []Item   `json:"items"`
}

// GroupByCategory splits view models into one section per known category,
// in category display order. View models whose key is not in the catalog
// are dropped.
func GroupByCategory(c *Catalog, vms []ViewModel) []Section {
	sections := make([]Section, 0, len(Categories()))
	byCat := make(map[Category]int, len(Categories()))
	for _, cat := range Categories() {
		byCat[cat] = len(sections)
		sections = append(sections, Section{Category: cat, Title: cat.Title(), Items: []Item{}})
	}
	for _, vm := range vms {
		d, ok := c.Lookup(vm.FeatureKey)
		if !ok {
			continue
		}
		i := byCat[d.Category]
		sections[i].Items = append(sections[i].Items, Item{Definition: d, ViewModel: vm})
	}
	return sections
}

// Summary aggregates the enabled features of a page.
type Summary struct {
	EnabledCount int      `json:"enabled_count"`
	Names        []string `json:"names"`
}

// Summarize counts enabled view models and lists their display names.
func Summarize(c *Catalog, vms []ViewModel) Summary {
	s := Summary{Names: []string{}}
	for _, vm := range vms {
		if !vm.Enabled {
			continue
		}
		d, ok := c.Lookup(vm.FeatureKey)
		if !ok {
			continue
		}
		s.EnabledCount++
		s.Names = append(s.Names, d.Name)
	}
	return s
}
