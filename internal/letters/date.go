package letters

import "fmt"

// Date is a letter date of year, month, or day precision. A zero component
// means that part is unknown.
type Date struct {
	Year  int
	Month int
	Day   int
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// ListDate renders the date for display, unknown components as question
// marks. A fully unknown date renders as "(Undated)".
func (d Date) ListDate() string {
	if d.IsZero() {
		return "(Undated)"
	}
	year := "????"
	if d.Year > 0 {
		year = fmt.Sprintf("%04d", d.Year)
	}
	month := "??"
	if d.Month > 0 {
		month = fmt.Sprintf("%02d", d.Month)
	}
	day := "??"
	if d.Day > 0 {
		day = fmt.Sprintf("%02d", d.Day)
	}
	return year + "-" + month + "-" + day
}

// SortKey renders the date as a zero-filled yyyymmdd string so letters with
// partial dates order before fully dated ones in the same period.
func (d Date) SortKey() string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, d.Month, d.Day)
}

// IndexDate renders the date at its known precision: yyyy, yyyy-MM, or
// yyyy-MM-dd. An unknown year yields an empty string and the letter is
// indexed dateless.
func (d Date) IndexDate() string {
	if d.Year == 0 {
		return ""
	}
	if d.Month == 0 {
		return fmt.Sprintf("%04d", d.Year)
	}
	if d.Day == 0 {
		return fmt.Sprintf("%04d-%02d", d.Year, d.Month)
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}
