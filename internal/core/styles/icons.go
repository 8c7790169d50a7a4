package styles

// Tip: To find icons use https://github.com/loichyan/nerdfix

var (
	IconMail    = "\ueb1c"
	IconHome    = "\uf015"
	IconProfile = "\uf007"
	IconLink    = "\uf0c1"
	IconUnlink  = "\uf127"
)
