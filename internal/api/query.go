package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// SortKey: поле сортировки; "-name" даёт Desc.
type SortKey struct {
	Field string
	Desc  bool
}

// ListParams: разобранные _limit/_offset/_sort/q/nulls и фильтры-равенства.
type ListParams struct {
	Limit   int
	Offset  int
	Sort    []SortKey
	Filters map[string][]string
	Q       string
	Nulls   string // last | first
}

// служебные ключи, которые не становятся фильтрами
var reservedParams = map[string]bool{
	"q": true, "nulls": true, "lang": true,
	"limit": true, "offset": true, "sort": true, "order": true,
	"_limit": true, "_offset": true, "_sort": true, "_order": true,
}

// param возвращает значение первого непустого ключа ("_limit", затем "limit").
func param(q url.Values, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			return v
		}
	}
	return ""
}

func intParam(q url.Values, upper int, keys ...string) int {
	n, err := strconv.Atoi(param(q, keys...))
	if err != nil || n < 0 || (upper > 0 && n > upper) {
		return 0
	}
	return n
}

func parseSort(v string) []SortKey {
	var keys []SortKey
	for _, p := range strings.Split(v, ",") {
		p = strings.TrimSpace(p)
		field, desc := strings.CutPrefix(p, "-")
		field = strings.TrimPrefix(field, "+")
		if field != "" {
			keys = append(keys, SortKey{Field: field, Desc: desc})
		}
	}
	return keys
}

// parseListParams разбирает параметры листинга. consumed: ключи, уже ушедшие на бэкенд.
func parseListParams(q url.Values, consumed ...string) ListParams {
	lp := ListParams{
		Limit:   intParam(q, 1000, "_limit", "limit"), // 0: без ограничения
		Offset:  intParam(q, 0, "_offset", "offset"),
		Sort:    parseSort(param(q, "_sort", "sort")),
		Filters: map[string][]string{},
		Q:       param(q, "q"),
		Nulls:   "last",
	}
	if strings.EqualFold(param(q, "nulls"), "first") {
		lp.Nulls = "first"
	}
	for key, vals := range q {
		if reservedParams[key] || slices.Contains(consumed, key) {
			continue
		}
		var clean []string
		for _, v := range vals {
			if strings.TrimSpace(v) != "" {
				clean = append(clean, v)
			}
		}
		if len(clean) > 0 {
			lp.Filters[key] = clean
		}
	}
	return lp
}

// ==== Листинг типизированных ответов бэкенда ====

// listRecord: элемент списка и его JSON-представление для фильтров и сортировки.
type listRecord[T any] struct {
	item T
	data map[string]any
}

// page фильтрует (q: подстрока в любом строковом поле, остальные, равенство),
// сортирует и режет список. Возвращает страницу и общее число после фильтрации.
func page[T any](items []T, lp ListParams) ([]T, int) {
	recs := make([]listRecord[T], 0, len(items))
	q := strings.ToLower(lp.Q)
	for _, it := range items {
		data := toRecord(it)
		if q != "" && !containsText(data, q) {
			continue
		}
		if !matchFilters(data, lp.Filters) {
			continue
		}
		recs = append(recs, listRecord[T]{item: it, data: data})
	}

	if len(lp.Sort) > 0 {
		sort.SliceStable(recs, func(i, j int) bool {
			for _, k := range lp.Sort {
				if c := cmpByKey(recs[i].data, recs[j].data, k.Field, lp.Nulls, k.Desc); c != 0 {
					return c < 0
				}
			}
			return false
		})
	}

	total := len(recs)
	start := min(max(lp.Offset, 0), total)
	end := total
	if lp.Limit > 0 {
		end = min(start+lp.Limit, total)
	}
	out := make([]T, 0, end-start)
	for _, r := range recs[start:end] {
		out = append(out, r.item)
	}
	return out, total
}

// respondPage отдаёт страницу и общее число в X-Total-Count.
func respondPage[T any](c *gin.Context, items []T, consumed ...string) {
	lp := parseListParams(c.Request.URL.Query(), consumed...)
	out, total := page(items, lp)
	c.Header("X-Total-Count", strconv.Itoa(total))
	c.JSON(http.StatusOK, out)
}

func toRecord(v any) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}

func containsText(data map[string]any, q string) bool {
	for _, v := range data {
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

// matchFilters: ключи, которых нет в записи, не фильтруют.
func matchFilters(data map[string]any, filters map[string][]string) bool {
	for key, want := range filters {
		got, ok := data[key]
		if !ok {
			continue
		}
		hit := false
		for _, w := range want {
			if strings.EqualFold(toString(got), w) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// ==== Сортировка с политикой nulls ====

// cmpByKey сравнивает записи по одному ключу; null-значения уходят в конец
// (или в начало при nulls=first) независимо от направления.
func cmpByKey(a, b map[string]any, key string, nulls string, desc bool) int {
	va, vb := a[key], b[key]
	switch na, nb := va == nil, vb == nil; {
	case na && nb:
		return 0
	case na != nb:
		c := 1
		if nb {
			c = -1
		}
		if nulls == "first" {
			c = -c
		}
		return c
	}

	rel := 0
	fa, aNum := va.(float64)
	fb, bNum := vb.(float64)
	if aNum && bNum {
		switch {
		case fa < fb:
			rel = -1
		case fa > fb:
			rel = +1
		}
	} else {
		// строки сравниваем без учёта регистра
		rel = strings.Compare(strings.ToLower(toString(va)), strings.ToLower(toString(vb)))
	}
	if desc {
		rel = -rel
	}
	return rel
}
