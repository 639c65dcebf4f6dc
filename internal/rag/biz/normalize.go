package biz

import "strings"

// Normalize 将任意连续空白（空格、换行、制表符等）折叠为单个空格并去除首尾空白。
func Normalize(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
