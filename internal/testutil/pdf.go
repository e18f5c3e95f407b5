// Package testutil 测试用的文档构造工具
package testutil

import (
	"bytes"
	"fmt"
	"strings"
)

// PDFLine 一行文本及其位置(PDF坐标，y轴向上)
type PDFLine struct {
	Text     string
	X, Y     float64
	FontSize float64
}

// BuildPDF 生成一个最小的、带 Helvetica 文本层的PDF
// 每个元素是一页；空页面生成没有文本的页面
func BuildPDF(pages [][]PDFLine) []byte {
	var buf bytes.Buffer
	var offsets []int

	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	// 对象编号: 1 catalog, 2 pages, 3 font, 之后每页两个对象(page, content)
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	widths := strings.TrimSpace(strings.Repeat("500 ", 126-32+1))

	writeObj("<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>", strings.Join(kids, " "), len(pages)))
	writeObj(fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /FirstChar 32 /LastChar 126 /Widths [%s] >>", widths))

	for i, lines := range pages {
		var content strings.Builder
		for _, ln := range lines {
			size := ln.FontSize
			if size == 0 {
				size = 11
			}
			fmt.Fprintf(&content, "BT /F1 %g Tf %g %g Td (%s) Tj ET\n", size, ln.X, ln.Y, escapePDFString(ln.Text))
		}
		stream := content.String()
		writeObj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		writeObj(fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(stream), stream))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func escapePDFString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// ResumePage 一页典型的单栏英文简历
func ResumePage() []PDFLine {
	return []PDFLine{
		{Text: "Jane Doe", X: 72, Y: 740, FontSize: 20},
		{Text: "Profile", X: 72, Y: 700, FontSize: 14},
		{Text: "Backend engineer with eight years of experience building services.", X: 72, Y: 684},
		{Text: "Work Experience", X: 72, Y: 650, FontSize: 14},
		{Text: "Senior Engineer at Example Corp, built Python and Go microservices.", X: 72, Y: 634},
		{Text: "Engineer at Sample GmbH, maintained Kubernetes clusters on AWS.", X: 72, Y: 620},
		{Text: "Education", X: 72, Y: 580, FontSize: 14},
		{Text: "BSc Computer Science, Technical University", X: 72, Y: 564},
		{Text: "Skills", X: 72, Y: 530, FontSize: 14},
		{Text: "Python, Go, Docker, Kubernetes, PostgreSQL", X: 72, Y: 514},
	}
}
