package gris

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLandUse(t *testing.T) {
	html := `<div>
	  <img id="totUseLandMltmImg" src="../img/plan.png">
	  <table>
	    <tr><th> 소재지 </th><td>경기도  수원시
	        팔달구</td></tr>
	    <tr><th>지목</th><td>대</td></tr>
	    <tr><th>지목</th><td>전</td></tr>
	    <tr><th></th><td>ignored</td></tr>
	  </table>
	  <dl><dt>용도지역</dt><dd>제2종일반주거지역</dd></dl>
	</div>`

	lu, err := ParseLandUse(html, "https://gris.gg.go.kr/ost/oneStopView.do")
	require.NoError(t, err)

	assert.Equal(t, "https://gris.gg.go.kr/img/plan.png", lu.ImageURL)
	assert.Equal(t, "경기도 수원시 팔달구", lu.Fields["소재지"])
	assert.Equal(t, "대", lu.Fields["지목"])
	assert.Equal(t, "제2종일반주거지역", lu.Fields["용도지역"])
	assert.Len(t, lu.Fields, 3)
}

func TestParseLandUseAbsoluteSrc(t *testing.T) {
	lu, err := ParseLandUse(`<img id="totUseLandMltmImg" src="https://cdn.example/x.png">`, "https://gris.gg.go.kr/")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/x.png", lu.ImageURL)
	assert.Empty(t, lu.Fields)
}

func TestParseLandUseMissingImage(t *testing.T) {
	_, err := ParseLandUse(`<table><tr><th>a</th><td>b</td></tr></table>`, "")
	assert.ErrorIs(t, err, ErrNoLandUse)
}
