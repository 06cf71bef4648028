package mealplan

import (
	"fmt"
	"strings"
	"unicode"
)

// Constraints 生成時要求的限制
type Constraints struct {
	MealTypes           []string
	DietaryRestrictions []string
	ExcludedIngredients string
	// ProductNames 提供給模型的促銷商品（原名與翻譯名皆可）
	ProductNames []string
}

// Report 事後檢查結果
type Report struct {
	Violations []string `json:"violations,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// OK 沒有違規
func (r Report) OK() bool {
	return len(r.Violations) == 0
}

// 以 * 結尾為詞首比對，否則整詞比對
var meatTerms = []string{
	"chicken*", "beef*", "pork*", "ham", "hams", "bacon*", "sausage*", "turkey*", "duck*", "lamb*", "veal*",
	"meat", "meats", "meatball*", "salami*", "fish*", "salmon*", "tuna*", "cod", "shrimp*", "prawn*",
	"anchov*", "mackerel*", "herring*", "sardine*", "trout*",
	"kurczak*", "kurczęc*", "drób", "drobiu", "drobiow*", "wołow*", "wieprz*", "szynk*", "szynek", "boczek*",
	"boczk*", "kiełbas*", "indyk*", "indycz*", "kaczk*", "kaczki", "mięs*", "schab*", "karkówk*",
	"parówk*", "kabanos*", "ryba", "ryby", "rybą", "rybę", "rybn*", "łosoś*", "łososi*", "tuńczyk*", "dorsz*",
	"krewet*", "śledź*", "śledzi*", "makrel*", "pstrąg*",
}

var animalProductTerms = []string{
	"milk*", "cheese*", "butter", "cream", "yoghurt*", "yogurt*", "egg", "eggs", "honey", "kefir*",
	"mleko*", "mlecz*", "ser", "sera", "serem", "serek*", "sery", "masło*", "masła", "śmietan*", "jogurt*",
	"jajk*", "jaja", "jajo*", "jajek", "miód*", "miodu", "twaróg*", "twarog*", "mozzarell*", "parmezan*",
}

// 植物性替代品的修飾詞
var plantModifiers = []string{
	"sojow*", "kokosow*", "roślinn*", "orzechow*", "owsian*", "migdałow*", "ryżow*", "wegańsk*", "wegetariańsk*",
	"soy", "soya", "oat", "almond*", "coconut*", "peanut*", "vegan", "plant*", "tofu",
}

var negations = map[string]struct{}{"bez": {}, "without": {}}

// 餐別同義詞（波蘭文與英文）
var mealTypeAliases = map[string]string{
	"śniadanie":        "breakfast",
	"sniadanie":        "breakfast",
	"breakfast":        "breakfast",
	"drugie śniadanie": "second breakfast",
	"second breakfast": "second breakfast",
	"obiad":            "lunch",
	"lunch":            "lunch",
	"podwieczorek":     "snack",
	"przekąska":        "snack",
	"snack":            "snack",
	"kolacja":          "dinner",
	"dinner":           "dinner",
	"supper":           "dinner",
}

func canonicalMealType(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := mealTypeAliases[s]; ok {
		return c
	}
	return s
}

// Validate 檢查餐別、排除食材與素食限制；不認識的主商品只產生警告
func Validate(plan *MealPlan, c Constraints) Report {
	var r Report
	if plan == nil {
		r.Violations = append(r.Violations, "plan is empty")
		return r
	}

	allowed := make(map[string]struct{}, len(c.MealTypes))
	for _, t := range c.MealTypes {
		allowed[canonicalMealType(t)] = struct{}{}
	}

	excluded := SplitTerms(c.ExcludedIngredients)
	vegetarian, vegan := dietFlags(c.DietaryRestrictions)

	for _, meal := range plan.Meals {
		label := fmt.Sprintf("day %d %s %q", meal.Day, meal.Type, meal.Name)

		if len(allowed) > 0 {
			if _, ok := allowed[canonicalMealType(meal.Type)]; !ok {
				r.Violations = append(r.Violations, fmt.Sprintf("%s: meal type not requested", label))
			}
		}

		nameWords := itemWords(meal.Name)
		for _, term := range excluded {
			if containsTerm(nameWords, term) {
				r.Violations = append(r.Violations, fmt.Sprintf("%s: meal name contains excluded ingredient %q", label, term))
			}
		}

		items := make([]string, 0, len(meal.MainProducts)+len(meal.AdditionalIngredients))
		for _, p := range meal.MainProducts {
			items = append(items, p.Name)
			if len(c.ProductNames) > 0 && !knownProduct(p.Name, c.ProductNames) {
				r.Warnings = append(r.Warnings, fmt.Sprintf("%s: main product %q is not a supplied promotion", label, p.Name))
			}
		}
		for _, a := range meal.AdditionalIngredients {
			items = append(items, a.Name)
		}

		// 飲食限制只檢查食材項目，菜名不檢查
		for _, name := range items {
			words := itemWords(name)
			for _, term := range excluded {
				if containsTerm(words, term) {
					r.Violations = append(r.Violations, fmt.Sprintf("%s: %q contains excluded ingredient %q", label, name, term))
				}
			}
			if !(vegetarian || vegan) || plantBased(words) {
				continue
			}
			if term, ok := matchLexicon(words, meatTerms); ok {
				r.Violations = append(r.Violations, fmt.Sprintf("%s: %q is not vegetarian (%s)", label, name, term))
			}
			if vegan {
				if term, ok := matchLexicon(words, animalProductTerms); ok {
					r.Violations = append(r.Violations, fmt.Sprintf("%s: %q is not vegan (%s)", label, name, term))
				}
			}
		}
	}
	return r
}

// SplitTerms 將排除食材文字拆為小寫詞組
func SplitTerms(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func dietFlags(restrictions []string) (vegetarian, vegan bool) {
	for _, r := range restrictions {
		r = strings.ToLower(r)
		switch {
		case strings.Contains(r, "vegan"), strings.Contains(r, "wegan"):
			vegan = true
		case strings.Contains(r, "vegetarian"), strings.Contains(r, "wegetaria"):
			vegetarian = true
		}
	}
	return vegetarian, vegan
}

func splitWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

// itemWords 拆詞並去掉被否定的詞（"bez mięsa"、"meat-free"）
func itemWords(name string) []string {
	words := splitWords(name)
	out := make([]string, 0, len(words))
	for i := 0; i < len(words); i++ {
		w := words[i]
		if _, ok := negations[w]; ok {
			i++
			continue
		}
		if i+1 < len(words) && words[i+1] == "free" {
			i++
			continue
		}
		out = append(out, w)
	}
	return out
}

// matchLexicon 任一詞符合詞表時返回該詞
func matchLexicon(words []string, terms []string) (string, bool) {
	for _, w := range words {
		for _, t := range terms {
			if stem, prefix := strings.CutSuffix(t, "*"); prefix {
				if strings.HasPrefix(w, stem) {
					return w, true
				}
			} else if w == t {
				return w, true
			}
		}
	}
	return "", false
}

func plantBased(words []string) bool {
	_, ok := matchLexicon(words, plantModifiers)
	return ok
}

// containsTerm 排除詞需按詞首對齊連續出現，"ser" 不命中 "deser"
func containsTerm(words []string, term string) bool {
	want := splitWords(term)
	if len(want) == 0 || len(want) > len(words) {
		return false
	}
	for i := 0; i+len(want) <= len(words); i++ {
		hit := true
		for j, t := range want {
			if !strings.HasPrefix(words[i+j], t) {
				hit = false
				break
			}
		}
		if hit {
			return true
		}
	}
	return false
}

func knownProduct(name string, supplied []string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return false
	}
	for _, s := range supplied {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if strings.Contains(s, n) || strings.Contains(n, s) {
			return true
		}
	}
	return false
}
