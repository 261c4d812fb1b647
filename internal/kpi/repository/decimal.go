package repository

import "github.com/shopspring/decimal"

// Float 将数据库 numeric 转为计算用 float64。
// 所有 decimal → float64 的转换只走这里，精度行为集中可测。
func Float(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// NullFloat 可空 numeric 转换，NULL 返回 nil
func NullFloat(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f := Float(d.Decimal)
	return &f
}
