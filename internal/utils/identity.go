package utils

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// 规范化最多迭代的轮数，个别字符的大小写折叠需要两轮才稳定
const normalizeRounds = 4

// NormalizeUserName 规范化用户显示名，作为玩家身份的查询键
//
// 兼容分解、大小写折叠、去除首尾空白并合并连续空白，
// 因此 "Jane"、" jane " 与 "JANE" 得到同一个键。
func NormalizeUserName(name string) string {
	return fixedPoint(name, normalizeUserNameOnce)
}

func normalizeUserNameOnce(s string) string {
	s = norm.NFKC.String(s)
	// Caser有内部状态，不能跨goroutine共享
	s = cases.Fold().String(s)
	// 切罗基字母折叠后落在大写，再转小写收敛
	s = cases.Lower(language.Und).String(s)
	s = norm.NFKC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeProjectCode 规范化项目编码：去掉全部空白并转为大写
func NormalizeProjectCode(code string) string {
	return fixedPoint(code, normalizeProjectCodeOnce)
}

func normalizeProjectCodeOnce(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Join(strings.Fields(s), "")
	s = cases.Upper(language.Und).String(s)
	s = norm.NFKC.String(s)
	return strings.Join(strings.Fields(s), "")
}

func fixedPoint(s string, step func(string) string) string {
	s = step(s)
	for i := 1; i < normalizeRounds; i++ {
		next := step(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

// PairKey 生成两个玩家的无序配对键，(a, b) 与 (b, a) 结果相同
//
// 参数需为已规范化的用户名。
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%s|%s", len(a), a, b)
}
