package gateway

import "html/template"

var claimPage = template.Must(template.New("claim").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>Your download</title></head>
<body>
<h1>Thanks for your purchase</h1>
<p>Your download for <strong>{{.ItemID}}</strong> is ready. The link works
exactly once and expires in {{.TTLMinutes}} minutes.</p>
<p><a href="{{.URL}}">Open download page</a></p>
</body>
</html>
`))

var gatePage = template.Must(template.New("gate").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>Download {{.ItemID}}</title></head>
<body>
<h1>{{.ItemID}}</h1>
<p>Click once to start your download. The link stops working after the
first use.</p>
<p><a href="{{.FileURL}}" download>Download now</a></p>
</body>
</html>
`))

var goneTemplate = template.Must(template.New("gone").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>Link expired</title></head>
<body>
<h1>This link is invalid or has expired</h1>
<p>Download links work exactly once and for a limited time. If you think
this is a mistake, reload your purchase confirmation page.</p>
</body>
</html>
`))

type claimPageData struct {
	ItemID     string
	URL        string
	TTLMinutes int
}

type gatePageData struct {
	ItemID  string
	FileURL string
}
