package repository

import (
	"fmt"
	"strconv"
	"strings"
)

func placeholderClause(column string, arg int) string {
	return fmt.Sprintf("%s=$%d", column, arg)
}

func joinClauses(clauses []string) string {
	return strings.Join(clauses, " AND ")
}

func joinComma(parts []string) string {
	return strings.Join(parts, ",")
}

func itoa(v int) string {
	return strconv.Itoa(v)
}
