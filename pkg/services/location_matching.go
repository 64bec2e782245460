package services

import (
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// UKCities is the built-in reference list for location_city fields.
var UKCities = []string{
	"Aberdeen", "Bath", "Belfast", "Birmingham", "Bradford", "Brighton", "Bristol",
	"Cambridge", "Canterbury", "Cardiff", "Carlisle", "Chelmsford", "Chester",
	"Chichester", "Coventry", "Derby", "Dundee", "Durham", "Edinburgh", "Exeter",
	"Glasgow", "Gloucester", "Hereford", "Inverness", "Kingston upon Hull", "Lancaster",
	"Leeds", "Leicester", "Lichfield", "Lincoln", "Liverpool", "London", "Manchester",
	"Milton Keynes", "Newcastle upon Tyne", "Newport", "Norwich", "Nottingham", "Oxford",
	"Perth", "Peterborough", "Plymouth", "Portsmouth", "Preston", "Ripon", "Salford",
	"Salisbury", "Sheffield", "Southampton", "Southend-on-Sea", "St Albans", "Stirling",
	"Stoke-on-Trent", "Sunderland", "Swansea", "Truro", "Wakefield", "Wells",
	"Westminster", "Winchester", "Wolverhampton", "Worcester", "York",
}

// UKTowns is the built-in reference list for location_town fields.
var UKTowns = []string{
	"Aldershot", "Ashford", "Aylesbury", "Banbury", "Barnsley", "Basildon", "Basingstoke",
	"Bedford", "Blackburn", "Blackpool", "Bolton", "Bournemouth", "Bracknell", "Burnley",
	"Burton upon Trent", "Bury", "Chatham", "Cheltenham", "Chesterfield", "Colchester",
	"Crawley", "Crewe", "Darlington", "Doncaster", "Dover", "Eastbourne", "Grimsby",
	"Guildford", "Halifax", "Harlow", "Harrogate", "Hartlepool", "Hastings",
	"Hemel Hempstead", "High Wycombe", "Huddersfield", "Ipswich", "Kettering",
	"Kidderminster", "King's Lynn", "Luton", "Maidstone", "Mansfield", "Middlesbrough",
	"Northampton", "Nuneaton", "Oldham", "Poole", "Reading", "Redditch", "Rochdale",
	"Rotherham", "Rugby", "Scunthorpe", "Shrewsbury", "Slough", "Solihull", "Southport",
	"Stafford", "Stevenage", "Stockport", "Swindon", "Tamworth", "Telford", "Thurrock",
	"Tunbridge Wells", "Warrington", "Watford", "Wigan", "Woking", "Worthing", "Yeovil",
}

// ReferenceLists holds the canonical place names used by location cleaners.
type ReferenceLists struct {
	Cities []string `yaml:"cities"`
	Towns  []string `yaml:"towns"`
}

// DefaultReferenceLists returns the built-in UK city and town lists.
func DefaultReferenceLists() *ReferenceLists {
	return &ReferenceLists{Cities: UKCities, Towns: UKTowns}
}

// LoadReferenceLists reads city and town lists from a YAML file. An empty path returns
// the built-in lists; a list missing from the file keeps its built-in value.
func LoadReferenceLists(path string) (*ReferenceLists, error) {
	lists := DefaultReferenceLists()
	if path == "" {
		return lists, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference lists: %w", err)
	}

	var fromFile ReferenceLists
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return nil, fmt.Errorf("failed to parse reference lists %s: %w", path, err)
	}
	if len(fromFile.Cities) > 0 {
		lists.Cities = fromFile.Cities
	}
	if len(fromFile.Towns) > 0 {
		lists.Towns = fromFile.Towns
	}
	return lists, nil
}

// foldPlace lowercases, strips diacritics and collapses whitespace so "Bürgess  Hill"
// and "burgess hill" compare equal.
func foldPlace(s string) string {
	decomposed := norm.NFD.String(strings.ToLower(s))
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return collapseSpaces(b.String())
}

// locationThreshold is the largest edit distance accepted for a normalized name of
// the given length.
func locationThreshold(normalized string) int {
	limit := int(0.3 * float64(utf8.RuneCountInString(normalized)))
	if limit < 2 {
		return 2
	}
	return limit
}

// CleanLocation corrects a place name against a reference list: exact
// case-insensitive match first, then the closest candidate by Levenshtein distance
// within locationThreshold. Unknown places are returned trimmed, never nulled, so they
// stay visible to the user.
func CleanLocation(v any, referenceList []string) any {
	s, ok := cleanerInput(v)
	if !ok {
		return nil
	}
	if len(referenceList) == 0 {
		return s
	}

	folded := foldPlace(s)
	for _, candidate := range referenceList {
		if foldPlace(candidate) == folded {
			return candidate
		}
	}

	best, bestDist := "", -1
	for _, candidate := range referenceList {
		d := fuzzy.LevenshteinDistance(folded, foldPlace(candidate))
		if bestDist < 0 || d < bestDist {
			best, bestDist = candidate, d
		}
	}
	if bestDist >= 0 && bestDist <= locationThreshold(folded) {
		return best
	}
	return s
}
