// Package web 内嵌的页面模板和浏览器脚本
package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates static
var files embed.FS

// Templates 解析全部页面模板,模板名为文件名
func Templates() (*template.Template, error) {
	return template.New("").ParseFS(files, "templates/*.html")
}

// Static 浏览器静态资源
func Static() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
