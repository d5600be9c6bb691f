package handler

import "net/http"

// Dashboard handles GET /dashboard: a single self-contained page that polls
// the trade list and follows the market tick stream over WebSocket.
func Dashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(dashboardHTML))
}

const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>tradesim dashboard</title>
<style>
body { font-family: monospace; margin: 2rem; background: #111; color: #ddd; }
h1 { font-size: 1.2rem; }
table { border-collapse: collapse; width: 100%; margin-bottom: 2rem; }
th, td { border: 1px solid #444; padding: 4px 8px; text-align: left; }
th { background: #222; }
.CONFIRMED { color: #6c6; }
.REJECTED, .CANCELLED { color: #c66; }
.PARTIAL, .RETRY, .PENDING_CONFIRMATION { color: #cc6; }
#ticks { white-space: pre; max-height: 12rem; overflow-y: auto; }
</style>
</head>
<body>
<h1>tradesim</h1>
<h2>Trades</h2>
<table>
<thead><tr><th>id</th><th>isin</th><th>trader</th><th>qty</th><th>filled</th><th>price</th><th>state</th><th>attempts</th></tr></thead>
<tbody id="trades"></tbody>
</table>
<h2>Market ticks</h2>
<div id="ticks"></div>
<script>
async function refresh() {
  const res = await fetch('/api/trades');
  const trades = await res.json();
  const rows = trades.map(t =>
    '<tr><td>' + t.trade_id + '</td><td>' + t.isin + '</td><td>' + t.trader +
    '</td><td>' + t.quantity + '</td><td>' + t.filled +
    '</td><td>' + t.execution_price.toFixed(2) +
    '</td><td class="' + t.state + '">' + t.state +
    '</td><td>' + t.attempts + '</td></tr>');
  document.getElementById('trades').innerHTML = rows.join('');
}
setInterval(refresh, 1000);
refresh();

const ticks = document.getElementById('ticks');
const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
const ws = new WebSocket(proto + '//' + location.host + '/ws/market');
ws.onmessage = ev => {
  const t = JSON.parse(ev.data);
  ticks.textContent = t.isin + ' ' + t.price.toFixed(2) + '\n' + ticks.textContent;
  if (ticks.textContent.length > 5000) {
    ticks.textContent = ticks.textContent.slice(0, 5000);
  }
};
</script>
</body>
</html>
`
