// Package codes 生成订单/SKU/任务的展示编号，纯函数无副作用
package codes

import (
	"fmt"
	"strings"
)

// 品类→两位编码
var categoryCodes = map[string]string{
	"ring":     "RG",
	"necklace": "NL",
	"bracelet": "BR",
	"bangle":   "BG",
	"earring":  "ER",
	"pendant":  "PD",
	"brooch":   "BC",
	"chain":    "CH",
}

// UnknownCategoryCode 未知品类兜底编码
const UnknownCategoryCode = "XX"

// CategoryCode 品类编码，未知品类返回兜底值而非报错
func CategoryCode(category string) string {
	if code, ok := categoryCodes[strings.ToLower(strings.TrimSpace(category))]; ok {
		return code
	}
	return UnknownCategoryCode
}

// SKUCode SKU展示编号，如 RG-0042；序号超过9999自然加宽
func SKUCode(seq int64, category string) string {
	return fmt.Sprintf("%s-%04d", CategoryCode(category), seq)
}

// OrderCode 订单展示编号，如 O-0042
func OrderCode(seq int64) string {
	return fmt.Sprintf("O-%04d", seq)
}

// JobCode 任务展示编号，如 J0042-3；jobSeq为订单内计数，不是全局序列
func JobCode(orderSeq, jobSeq int64) string {
	return fmt.Sprintf("J%04d-%d", orderSeq, jobSeq)
}
