package domain

import "strings"

// CategoryGroup tags a hazard category with its broad class.
type CategoryGroup string

const (
	GroupWeather    CategoryGroup = "weather"
	GroupGeological CategoryGroup = "geological"
	GroupAgriEnv    CategoryGroup = "agricultural_environmental"
	GroupOther      CategoryGroup = "other"
)

// Category is one hazard class from the closed taxonomy. Slug doubles as the
// dissemination topic suffix. English and Hindi hold the substring patterns
// that map free text onto this category.
type Category struct {
	Slug    string
	Group   CategoryGroup
	English []string
	Hindi   []string
}

// CategoryOther is the catch-all for alerts matching no keyword table.
var CategoryOther = Category{Slug: "other", Group: GroupOther}

// Categories is the full rule table in priority order: weather hazards
// first, then geological, then agricultural/environmental. Categorize
// evaluates it top to bottom and the first match wins, so the order here is
// part of the classification contract, not an implementation detail.
// Keyword lists mirror the NDMA feed's historic bilingual vocabulary.
var Categories = []Category{
	{
		Slug:    "weather_cyclone",
		Group:   GroupWeather,
		English: []string{"cyclone", "cyclonic"},
		Hindi:   []string{"चक्रवात"},
	},
	{
		Slug:    "rainfall_floods",
		Group:   GroupWeather,
		English: []string{"rainfall", "rain", "flood", "heavy rain", "extremely heavy rain"},
		Hindi:   []string{"बाढ़", "बारिश", "वर्षा"},
	},
	{
		Slug:    "thunderstorm_lightning",
		Group:   GroupWeather,
		English: []string{"thunderstorm", "thunder storm", "lightning", "thunder"},
		Hindi:   []string{"आंधी", "तड़ित", "बिजली", "गरज"},
	},
	{
		Slug:    "hailstorm",
		Group:   GroupWeather,
		English: []string{"hail"},
		Hindi:   []string{"ओला", "ओलावृष्टि"},
	},
	{
		Slug:    "cloud_burst",
		Group:   GroupWeather,
		English: []string{"cloudburst", "cloud burst"},
		Hindi:   []string{"बादल फटना"},
	},
	{
		Slug:    "frost_cold_wave",
		Group:   GroupWeather,
		English: []string{"frost", "cold wave", "coldwave", "cold", "freeze"},
		Hindi:   []string{"शीत लहर", "पाला", "ठंड"},
	},
	{
		Slug:    "heat_wave",
		Group:   GroupWeather,
		English: []string{"heat", "hot"},
		Hindi:   []string{"गर्मी की लहर"},
	},
	{
		Slug:    "dust_storm",
		Group:   GroupWeather,
		English: []string{"dust"},
		Hindi:   []string{"धूल"},
	},
	{
		Slug:    "earthquake",
		Group:   GroupGeological,
		English: []string{"earthquake"},
		Hindi:   []string{"भूकंप"},
	},
	{
		Slug:    "tsunami",
		Group:   GroupGeological,
		English: []string{"tsunami"},
		Hindi:   []string{"सुनामी"},
	},
	{
		Slug:    "landslide",
		Group:   GroupGeological,
		English: []string{"landslide", "land slide"},
		Hindi:   []string{"भूस्खलन"},
	},
	{
		Slug:    "avalanche",
		Group:   GroupGeological,
		English: []string{"avalanche"},
		Hindi:   []string{"हिमस्खलन"},
	},
	{
		Slug:    "drought",
		Group:   GroupAgriEnv,
		English: []string{"drought"},
		Hindi:   []string{"सूखा"},
	},
	{
		Slug:    "pre_fire",
		Group:   GroupAgriEnv,
		English: []string{"pre fire", "pre-fire", "fire", "forest fire"},
		Hindi:   []string{"जंगल में आग", "आग"},
	},
	{
		Slug:    "pest_attack",
		Group:   GroupAgriEnv,
		English: []string{"pest"},
		Hindi:   []string{"कीट"},
	},
}

// Categorize assigns a hazard category to an alert. It lowercases the
// concatenation of disaster_type, warning_message, and area_description and
// returns the first category in Categories with any English or Hindi keyword
// present as a substring. Empty text and unmatched text both yield
// CategoryOther. Pure function: no I/O, no mutation, safe for concurrent use.
func Categorize(record AlertRecord) Category {
	text := searchText(record)
	if text == "" {
		return CategoryOther
	}

	for _, category := range Categories {
		if matchesAny(text, category.English) || matchesAny(text, category.Hindi) {
			return category
		}
	}
	return CategoryOther
}

// CategoryBySlug looks a category up by its slug. The second return is false
// for unknown slugs.
func CategoryBySlug(slug string) (Category, bool) {
	if slug == CategoryOther.Slug {
		return CategoryOther, true
	}
	for _, category := range Categories {
		if category.Slug == slug {
			return category, true
		}
	}
	return Category{}, false
}

// TopicFor returns the dissemination topic for a category under the given
// prefix, e.g. "alerts/weather_cyclone".
func TopicFor(prefix string, category Category) string {
	return prefix + "/" + category.Slug
}

func searchText(record AlertRecord) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{record.DisasterType, record.WarningMessage, record.AreaDescription} {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func matchesAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
