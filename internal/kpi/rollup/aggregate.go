package rollup

import (
	"sort"
	"strconv"
)

// UnknownLabel 无名称维度值的显示名
const UnknownLabel = "Unknown"

// Key 维度值标识
type Key struct {
	ID   string
	Name string
}

// Label 显示名，为空时返回 UnknownLabel
func (k Key) Label() string {
	if k.Name == "" {
		return UnknownLabel
	}
	return k.Name
}

// Group 一个维度值及其成员（保持加载顺序）
type Group[T any] struct {
	Key   string
	Label string
	Items []T
}

// GroupBy 单次遍历按维度分组，组按首次出现顺序输出，每个元素只落入一个组
func GroupBy[T any](items []T, key func(T) Key) []Group[T] {
	index := make(map[string]int)
	groups := make([]Group[T], 0)

	for _, item := range items {
		k := key(item)
		i, ok := index[k.ID]
		if !ok {
			i = len(groups)
			index[k.ID] = i
			groups = append(groups, Group[T]{Key: k.ID, Label: k.Label()})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}

// ValueRollup 维度值的计数与度量合计
type ValueRollup struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Count int     `json:"count"`
	Value float64 `json:"value"`
}

// SumBy 分组并对度量求和
func SumBy[T any](items []T, key func(T) Key, measure func(T) float64) []ValueRollup {
	groups := GroupBy(items, key)
	out := make([]ValueRollup, 0, len(groups))
	for _, g := range groups {
		r := ValueRollup{Key: g.Key, Label: g.Label, Count: len(g.Items)}
		for _, item := range g.Items {
			r.Value += measure(item)
		}
		out = append(out, r)
	}
	return out
}

// RatioRollup 维度值的 Σnum / Σden
type RatioRollup struct {
	Key         string  `json:"key"`
	Label       string  `json:"label"`
	Count       int     `json:"count"`
	Numerator   float64 `json:"numerator"`
	Denominator float64 `json:"denominator"`
	Ratio       float64 `json:"ratio"`
}

// RatioBy 分组后以两个度量合计相除
func RatioBy[T any](items []T, key func(T) Key, num, den func(T) float64) []RatioRollup {
	groups := GroupBy(items, key)
	out := make([]RatioRollup, 0, len(groups))
	for _, g := range groups {
		r := RatioRollup{Key: g.Key, Label: g.Label, Count: len(g.Items)}
		for _, item := range g.Items {
			r.Numerator += num(item)
			r.Denominator += den(item)
		}
		r.Ratio = ratio(r.Numerator, r.Denominator)
		out = append(out, r)
	}
	return out
}

// TopN 按排名值降序取前 n 个，并列保持输入顺序；n <= 0 时全部保留，不修改入参
func TopN[T any](items []T, n int, rank func(T) float64) []T {
	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return rank(sorted[i]) > rank(sorted[j])
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// SortByLabel 按显示名排序，显示名相同时按键排序
func SortByLabel[T any](rs []T, label func(T) (string, string)) {
	sort.SliceStable(rs, func(i, j int) bool {
		li, ki := label(rs[i])
		lj, kj := label(rs[j])
		if li != lj {
			return li < lj
		}
		return ki < kj
	})
}

// Bucket 直方图区间，溢出区间的 Max 为 nil
type Bucket struct {
	Label string   `json:"label"`
	Max   *float64 `json:"max"`
	Count int      `json:"count"`
}

// Histogram 每个值计入第一个不小于它的阈值区间，超过全部阈值的计入末尾溢出区间。
// 阈值须升序；结果固定 len(thresholds)+1 个区间，计数之和等于 len(values)
func Histogram(values []float64, thresholds []float64) []Bucket {
	buckets := make([]Bucket, len(thresholds)+1)
	for i, t := range thresholds {
		limit := t
		buckets[i] = Bucket{Label: "<= " + formatThreshold(t), Max: &limit}
	}
	overflow := len(thresholds)
	if len(thresholds) > 0 {
		buckets[overflow] = Bucket{Label: "> " + formatThreshold(thresholds[len(thresholds)-1])}
	} else {
		buckets[overflow] = Bucket{Label: "all"}
	}

	for _, v := range values {
		placed := false
		for i, t := range thresholds {
			if v <= t {
				buckets[i].Count++
				placed = true
				break
			}
		}
		if !placed {
			buckets[overflow].Count++
		}
	}
	return buckets
}

func formatThreshold(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}

// Median 中位数，偶数个取中间两值均值，无值时为 0
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Mean 算术平均，无值时为 0
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Percent part/total*100，total 为 0 时为 0
func Percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// Cell 覆盖矩阵中出现过的 (outer, inner) 组合
type Cell struct {
	OuterKey string `json:"outer_key"`
	Outer    string `json:"outer"`
	InnerKey string `json:"inner_key"`
	Inner    string `json:"inner"`
	Count    int    `json:"count"`
}

// Coverage 统计 (outer, inner) 组合并展开为三元组。只输出出现过的组合，
// outer 与其下的 inner 均按首次出现顺序
func Coverage[T any](items []T, outer func(T) Key, inner func(T) []Key) []Cell {
	type row struct {
		key   Key
		order []string
		cells map[string]*Cell
	}
	rows := make(map[string]*row)
	order := make([]string, 0)

	for _, item := range items {
		o := outer(item)
		r, ok := rows[o.ID]
		if !ok {
			r = &row{key: o, cells: make(map[string]*Cell)}
			rows[o.ID] = r
			order = append(order, o.ID)
		}
		for _, in := range inner(item) {
			c, ok := r.cells[in.ID]
			if !ok {
				c = &Cell{OuterKey: o.ID, Outer: r.key.Label(), InnerKey: in.ID, Inner: in.Label()}
				r.cells[in.ID] = c
				r.order = append(r.order, in.ID)
			}
			c.Count++
		}
	}

	out := make([]Cell, 0)
	for _, id := range order {
		r := rows[id]
		for _, in := range r.order {
			out = append(out, *r.cells[in])
		}
	}
	return out
}
