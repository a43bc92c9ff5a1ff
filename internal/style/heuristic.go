package style

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// wordMatcher counts case-insensitive, whole-word occurrences of any term.
type wordMatcher struct {
	re *regexp.Regexp
}

func newWordMatcher(terms ...string) wordMatcher {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return wordMatcher{re: regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)}
}

func (m wordMatcher) count(text string) int {
	return len(m.re.FindAllStringIndex(text, -1))
}

var (
	maleWords = newWordMatcher(
		"boy", "boys", "man", "men", "male", "he", "him", "his", "gentleman",
		"guy", "father", "son", "husband", "brother", "masculine",
	)
	femaleWords = newWordMatcher(
		"girl", "girls", "woman", "women", "female", "she", "her", "hers", "lady",
		"mother", "daughter", "wife", "sister", "feminine",
	)
	youthWords = newWordMatcher(
		"young", "child", "children", "kid", "kids", "boy", "girl", "teen",
		"teenager", "toddler", "youth", "little", "school",
	)
	adultWords = newWordMatcher(
		"adult", "man", "woman", "mature", "grown", "parent", "career",
		"office", "executive", "middle-aged",
	)
	pregnancyWords = newWordMatcher(
		"pregnant", "pregnancy", "expecting", "maternity", "baby bump",
		"mother-to-be", "expectant",
	)

	// categoryOrder is the priority order; the first category with any hit wins.
	categoryOrder = []struct {
		name  string
		words wordMatcher
	}{
		{CategoryAthletic, newWordMatcher(
			"athletic", "sport", "sports", "sporty", "soccer", "football", "basketball",
			"tennis", "running", "gym", "workout", "fitness", "sneakers", "jersey",
			"activewear", "athleisure",
		)},
		{CategoryCasual, newWordMatcher(
			"casual", "jeans", "t-shirt", "hoodie", "relaxed", "comfortable",
			"everyday", "laid-back",
		)},
		{CategoryProfessional, newWordMatcher(
			"professional", "business", "suit", "blazer", "office", "corporate",
			"formal", "tailored", "executive",
		)},
		{CategoryCreative, newWordMatcher(
			"creative", "artistic", "bohemian", "boho", "eclectic", "vintage",
			"colorful", "artsy", "expressive",
		)},
	}
)

// signals are the classified features of one narrative.
type signals struct {
	gender    string
	age       string
	category  string
	pregnancy bool
}

func detectSignals(text string) signals {
	s := signals{gender: GenderUnspecified, age: AgeAdult, category: CategoryGeneral}

	male, female := maleWords.count(text), femaleWords.count(text)
	switch {
	case male > female:
		s.gender = GenderMale
	case female > male:
		s.gender = GenderFemale
	}

	if youthWords.count(text) > adultWords.count(text) {
		s.age = AgeYouth
	}

	for _, c := range categoryOrder {
		if c.words.count(text) > 0 {
			s.category = c.name
			break
		}
	}

	s.pregnancy = pregnancyWords.count(text) > 0
	return s
}

// persona is the archetype and tag set a rule assigns.
type persona struct {
	archetype string
	visual    []string
	essence   []string
}

type rule struct {
	name  string
	match func(signals) bool
	pick  func(signals) persona
}

func fixed(p persona) func(signals) persona {
	return func(signals) persona { return p }
}

// rules are evaluated in order; the first match wins. The final rule always matches.
var rules = []rule{
	{
		name:  "pregnancy",
		match: func(s signals) bool { return s.pregnancy },
		pick: fixed(persona{"Radiant Mother-to-Be",
			[]string{"Comfortable Elegance", "Flowing Silhouettes", "Soft Maternity Chic"},
			[]string{"Nurturing", "Radiant", "Serene"}}),
	},
	{
		name:  "youth-male-athletic",
		match: func(s signals) bool { return s.age == AgeYouth && s.gender == GenderMale && s.category == CategoryAthletic },
		pick: fixed(persona{"Young Athletic Boy",
			[]string{"Sporty Casual", "Athletic Wear", "Bold Colors"},
			[]string{"Energetic", "Competitive", "Playful"}}),
	},
	{
		name:  "youth-female-athletic",
		match: func(s signals) bool { return s.age == AgeYouth && s.gender == GenderFemale && s.category == CategoryAthletic },
		pick: fixed(persona{"Young Athletic Girl",
			[]string{"Sporty Chic", "Activewear", "Bright Accents"},
			[]string{"Energetic", "Confident", "Spirited"}}),
	},
	{
		name:  "youth-male",
		match: func(s signals) bool { return s.age == AgeYouth && s.gender == GenderMale },
		pick: fixed(persona{"Playful Young Explorer",
			[]string{"Casual Comfort", "Playful Prints", "Durable Basics"},
			[]string{"Curious", "Adventurous", "Playful"}}),
	},
	{
		name:  "youth-female",
		match: func(s signals) bool { return s.age == AgeYouth && s.gender == GenderFemale },
		pick: fixed(persona{"Creative Young Spirit",
			[]string{"Colorful Casual", "Playful Layers", "Expressive Accessories"},
			[]string{"Imaginative", "Joyful", "Free-Spirited"}}),
	},
	{
		name:  "adult-male-professional",
		match: func(s signals) bool { return s.age == AgeAdult && s.gender == GenderMale && s.category == CategoryProfessional },
		pick: fixed(persona{"Polished Professional Man",
			[]string{"Tailored Classics", "Business Formal", "Refined Accessories"},
			[]string{"Confident", "Focused", "Dependable"}}),
	},
	{
		name:  "adult-female-professional",
		match: func(s signals) bool { return s.age == AgeAdult && s.gender == GenderFemale && s.category == CategoryProfessional },
		pick: fixed(persona{"Polished Professional Woman",
			[]string{"Tailored Elegance", "Modern Business", "Statement Accessories"},
			[]string{"Confident", "Poised", "Ambitious"}}),
	},
	{
		name:  "adult-athletic",
		match: func(s signals) bool { return s.age == AgeAdult && s.category == CategoryAthletic },
		pick: fixed(persona{"Active Lifestyle Enthusiast",
			[]string{"Athleisure", "Performance Wear", "Clean Lines"},
			[]string{"Dynamic", "Disciplined", "Vibrant"}}),
	},
	{
		name:  "adult-creative",
		match: func(s signals) bool { return s.age == AgeAdult && s.category == CategoryCreative },
		pick: fixed(persona{"Creative Free Spirit",
			[]string{"Eclectic Layers", "Artistic Prints", "Vintage Touches"},
			[]string{"Expressive", "Original", "Open-Minded"}}),
	},
	{
		name:  "gendered-generic",
		match: func(s signals) bool { return s.gender == GenderMale || s.gender == GenderFemale },
		pick: func(s signals) persona {
			if s.gender == GenderMale {
				return persona{"Modern Gentleman",
					[]string{"Smart Casual", "Classic Menswear", "Clean Grooming"},
					[]string{"Grounded", "Approachable", "Self-Assured"}}
			}
			return persona{"Modern Woman",
				[]string{"Contemporary Chic", "Versatile Staples", "Refined Accents"},
				[]string{"Graceful", "Self-Assured", "Warm"}}
		},
	},
	{
		name:  "generic",
		match: func(signals) bool { return true },
		pick: fixed(persona{"Versatile Style Explorer",
			[]string{"Versatile Basics", "Mix and Match", "Modern Classics"},
			[]string{"Adaptable", "Curious", "Balanced"}}),
	},
}

// FallbackProfile is returned when classification cannot complete.
func FallbackProfile(narrative string) Profile {
	return Profile{
		Archetype:        "Style Enthusiast",
		VisualStyle:      []string{"Classic", "Modern", "Versatile"},
		EnergeticEssence: []string{"Authentic", "Confident", "Unique"},
		Narrative:        narrative,
	}
}

// ProfileFromNarrative classifies a free-text analysis into a Profile by
// keyword counting. It is pure and never panics; the narrative is kept verbatim.
func ProfileFromNarrative(narrative string) (p Profile) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Narrative classification failed, using fallback profile")
			p = FallbackProfile(narrative)
		}
	}()

	s := detectSignals(narrative)
	for _, r := range rules {
		if !r.match(s) {
			continue
		}
		chosen := r.pick(s)
		return Profile{
			Archetype:        chosen.archetype,
			VisualStyle:      append([]string(nil), chosen.visual...),
			EnergeticEssence: append([]string(nil), chosen.essence...),
			AgeGroup:         s.age,
			Gender:           s.gender,
			StyleCategory:    s.category,
			Narrative:        narrative,
		}
	}
	return FallbackProfile(narrative)
}
