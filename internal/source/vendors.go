package source

import (
	"sort"
	"strings"

	apperrors "sjsage522/bestdeal/pkg/errors"
	"sjsage522/bestdeal/services/cache"
)

// vendorConfigs holds the selector table of every supported vendor.
var vendorConfigs = map[string]SourceConfig{
	"LDLC": {
		Name:              "LDLC",
		CacheKey:          "ldlc_rate_limited",
		BlockTime:         500,
		RequestsPerMinute: 30,
		Burst:             2,
		Selectors: Selectors{
			Offer: "li.pdt-item",
			Name:  "h3.title-3 a",
			Price: "div.price div.price",
		},
	},
	"TopAchat": {
		Name:              "TopAchat",
		CacheKey:          "topachat_rate_limited",
		BlockTime:         500,
		RequestsPerMinute: 30,
		Burst:             2,
		Selectors: Selectors{
			Offer: "article.grille-produit",
			Name:  "section.libelle h3",
			Price: "div.prod_px_euro",
		},
	},
	"PCW": {
		Name:              "PCW",
		CacheKey:          "pcw_rate_limited",
		BlockTime:         500,
		RequestsPerMinute: 30,
		Burst:             2,
		Selectors: Selectors{
			Offer: "div.price-and-status.d-flex.flex-wrap.align-items-center",
			Name:  `a[itemprop="url"]`,
			Price: "span.price.product-price",
		},
	},
	"MindFactory": {
		Name:              "MindFactory",
		CacheKey:          "mindfactory_rate_limited",
		BlockTime:         500,
		RequestsPerMinute: 30,
		Burst:             2,
		Selectors: Selectors{
			Offer: "div.pcontent",
			Name:  "div.pname",
			Price: "div.pprice",
		},
		RemoveElements: []ElementRemoval{
			{Selector: "span.pshipping", ApplyToPath: "price"},
		},
	},
	"Cybertek": {
		Name:              "Cybertek",
		CacheKey:          "cybertek_rate_limited",
		BlockTime:         500,
		RequestsPerMinute: 30,
		Burst:             2,
		Selectors: Selectors{
			Offer:    "div.listing_dispo",
			Name:     "a.prod_txt_left",
			NameAttr: "title",
			Price:    "div.price_prod_resp",
		},
	},
	"GrosBill": {
		Name:              "GrosBill",
		CacheKey:          "grosbill_rate_limited",
		BlockTime:         500,
		RequestsPerMinute: 30,
		Burst:             2,
		Selectors: Selectors{
			Offer: "div.grb__liste-produit__liste__produit",
			Name:  "div.grb__liste-produit__liste__produit__information__libelle h2",
			Price: "div.grb__liste-produit__liste__produit__achat__prix",
		},
		RemoveElements: []ElementRemoval{
			{Selector: "sup", ApplyToPath: "price"},
		},
	},
}

// categoryPages maps each category to vendor -> hint -> listing URL.
var categoryPages = map[string]map[string]map[string]string{
	"GPU": {
		"PCW": {
			"RADEON": "https://www.pcw.fr/232-amd-radeon",
			"RTX":    "https://www.pcw.fr/210-nvidia-geforce-rtx",
		},
		"TopAchat": {
			"RTX 3 Stock": "https://www.topachat.com/pages/produits_cat_est_micro_puis_rubrique_est_wgfx_pcie_puis_f_est_58-11733,11575,11447,11884,11445,11883,11446|s-1.html",
			"RADEON":      "https://www.topachat.com/pages/produits_cat_est_micro_puis_rubrique_est_wgfx_pcie_puis_f_est_58-8743,10812,10851,8741,10586,10587,8742.html",
		},
		"GrosBill": {
			"Nvidia": "https://www.grosbill.com/2-carte_graphique-cat-informatique?tri=P&filtre_page=100&mode=listing&filtre_type_produit=carte_graphique&crits=4289%3a4229%3a4144%3a4533%3a4145%3a4530%3a4146%3a3013",
			"RADEON": "https://www.grosbill.com/3-carte_graphique-ati-type-informatique?page=1&tri=P&filtre_page=100&mode=listing&filtre_type_produit=carte_graphique",
		},
		"Cybertek": {
			"RTX 3 Stock": "https://www.cybertek.fr/carte-graphique-6.aspx?crits=4289%3a4229%3a4144%3a4533%3a4145%3a4530%3a4146",
			"RADEON":      "https://www.cybertek.fr/carte-graphique-6.aspx?crits=4053%3a4084%3a3707%3a3990%3a3991%3a3708&order=p%3aa%3b",
		},
		"LDLC": {
			"RTX 3 Stock": "https://www.ldlc.com/informatique/pieces-informatique/carte-graphique-interne/c4684/+fdi-1+fv1026-5801+fv121-19183,19184,19185,19365,19509,19800,19801.html",
			"RADEON":      "https://www.ldlc.com/informatique/pieces-informatique/carte-graphique-interne/c4684/+fdi-1+fi131-l4h8+foms-1+fv1026-5800+fv121-15666,15667,17714,17715,18248,18293.html?sort=1",
		},
	},
	"CPU": {
		"TopAchat": {
			"Intel Core": "https://www.topachat.com/pages/produits_cat_est_micro_puis_rubrique_est_wpr_puis_ordre_est_P_puis_sens_est_ASC_puis_f_est_3-61|557-8827.html",
			"AMD Ryzen":  "https://www.topachat.com/pages/produits_cat_est_micro_puis_rubrique_est_wpr_puis_ordre_est_P_puis_sens_est_ASC_puis_f_est_3-63|557-8865,8660,8617,10578.html",
		},
		"GrosBill": {
			"Intel Core": "https://www.grosbill.com/2-processeur_intel-cat-informatique?page=1&tri=w&filtre_page=100&mode=listing&filtre_type_produit=processeur",
			"AMD Ryzen":  "https://www.grosbill.com/2-processeur_amd-cat-informatique?page=1&tri=w&filtre_page=50&mode=listing&filtre_type_produit=processeur#filtre_mini=-1&filtre_maxi=-1&filtre_marque=AMD",
		},
		"Cybertek": {
			"Intel Core": "https://www.cybertek.fr/processeur-5/intel-6.aspx?crits=3778",
			"AMD Ryzen":  "https://www.cybertek.fr/processeur-5/amd-23.aspx?crits=3789%3a3777%3a3694%3a3987",
		},
		"LDLC": {
			"Intel Core": "https://www.ldlc.com/informatique/pieces-informatique/processeur/c4300/+fb-C000000192+fv579-15953.html?sort=1",
			"AMD Ryzen":  "https://www.ldlc.com/informatique/pieces-informatique/processeur/c4300/+fv579-15490,15637,16016,17684.html?sort=1",
		},
		"MindFactory": {
			"Intel Core": "https://www.mindfactory.de/Hardware/Prozessoren+(CPU)/INTEL+Desktop.html",
			"AMD Ryzen":  "https://www.mindfactory.de/search_result.php/search_query/AMD+RYZEN/Hardware/Prozessoren+(CPU).html",
		},
	},
	// no RAM listing pages are configured yet
	"RAM": {},
}

// Vendors lists the supported vendor names, sorted.
func Vendors() []string {
	names := make([]string, 0, len(vendorConfigs))
	for name := range vendorConfigs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewVendor builds the source of a known vendor.
func NewVendor(name string, cacheSvc cache.CacheService) (Source, error) {
	config, ok := vendorConfigs[name]
	if !ok {
		return nil, apperrors.NewConfiguration("unknown vendor "+name+" (known: "+strings.Join(Vendors(), ", ")+")", nil)
	}
	return NewConfigurableSource(config, cacheSvc), nil
}

// CreateTargets returns every vendor page to scrape for category, ordered by
// vendor then hint. One source instance is shared by the pages of a vendor.
func CreateTargets(category string, cacheSvc cache.CacheService) ([]Target, error) {
	pages, ok := categoryPages[strings.ToUpper(category)]
	if !ok {
		return nil, apperrors.NewConfiguration("no vendor pages for category "+category, nil)
	}

	vendors := make([]string, 0, len(pages))
	for vendor := range pages {
		vendors = append(vendors, vendor)
	}
	sort.Strings(vendors)

	var targets []Target
	for _, vendor := range vendors {
		src, err := NewVendor(vendor, cacheSvc)
		if err != nil {
			return nil, err
		}

		hints := make([]string, 0, len(pages[vendor]))
		for hint := range pages[vendor] {
			hints = append(hints, hint)
		}
		sort.Strings(hints)

		for _, hint := range hints {
			targets = append(targets, Target{Source: src, Hint: hint, URL: pages[vendor][hint]})
		}
	}
	return targets, nil
}
